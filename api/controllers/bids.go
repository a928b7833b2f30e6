package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kurumart/kurumart-backend/api/responses"
	"github.com/kurumart/kurumart-backend/api/validators"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

// SubmitBidRequest is the payload for placing a bid on one vehicle.
type SubmitBidRequest struct {
	GroupID   string          `json:"groupId" validate:"required"`
	VehicleID string          `json:"vehicleId" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

// UpdateBidRequest carries the raised amount for an existing bid.
type UpdateBidRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// BidSubmit places a bid through the coordinator and returns the resulting
// vehicle state, optimistic acceptance included.
func BidSubmit(engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body SubmitBidRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive"))
			return
		}

		state, err := engine.SubmitBid(r.Context(), body.GroupID, body.VehicleID, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, vehicleView(state))
	}
}

// BidCancel withdraws a pending or winning bid.
func BidCancel(engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidID := chi.URLParam(r, "bidID")
		if bidID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bid id is required"))
			return
		}

		if err := engine.CancelBid(r.Context(), bidID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "canceled", "bidId": bidID})
	}
}

// BidUpdate raises an existing bid: the coordinator re-selects the bid's
// group and the raise goes through the normal submission path.
func BidUpdate(engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bidID := chi.URLParam(r, "bidID")
		if bidID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bid id is required"))
			return
		}

		var body UpdateBidRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bid amount must be positive"))
			return
		}

		groupID, vehicleID, err := engine.UpdateBid(r.Context(), bidID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := engine.SubmitBid(r.Context(), groupID, vehicleID, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, vehicleView(state))
	}
}
