package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kurumart/kurumart-backend/api/responses"
	"github.com/kurumart/kurumart-backend/api/validators"
	"github.com/kurumart/kurumart-backend/internal/bidding"
	"github.com/kurumart/kurumart-backend/internal/catalog"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

// GroupLiveResponse pairs the derived group state with per-vehicle live views.
type GroupLiveResponse struct {
	Group    GroupStateView `json:"group"`
	Vehicles []VehicleView  `json:"vehicles"`
}

// GroupsList returns the stored auction catalog.
func GroupsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := svc.ListGroups(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, groups)
	}
}

// GroupDetail returns one catalog group with its vehicles.
func GroupDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		group, err := svc.GetGroup(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, group)
	}
}

// GroupsLive returns the derived live state of every tracked group.
func GroupsLive(engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states, err := engine.Groups(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]GroupStateView, 0, len(states))
		for _, state := range states {
			views = append(views, groupStateView(state))
		}
		responses.WriteSuccess(w, views)
	}
}

// GroupLive returns the live snapshot of one tracked group.
func GroupLive(engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		group, vehicles, err := engine.GroupSnapshot(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, GroupLiveResponse{
			Group:    groupStateView(group),
			Vehicles: vehicleViews(vehicles),
		})
	}
}

// GroupSelect marks a group as the caller's active working set.
func GroupSelect(engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		if err := engine.SelectGroup(r.Context(), groupID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"selectedGroupId": groupID})
	}
}

// ConnectionState reports the upstream feed connectivity.
func ConnectionState(engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := engine.ConnectionStatus(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}

// AdminImportGroup stores a catalog snapshot and registers it for live
// tracking in one shot.
func AdminImportGroup(svc catalog.Service, engine BidEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body catalog.UpsertGroupDTO
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		group, err := svc.ImportGroup(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SeedCoordinator(r.Context(), registrarFor(engine, group.ID)); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register imported group"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, group)
	}
}

// registrarFor narrows seeding to one group so an admin import does not
// re-register (and reset selection semantics of) unrelated groups.
func registrarFor(engine BidEngine, groupID string) catalog.GroupRegistrar {
	return scopedRegistrar{engine: engine, groupID: groupID}
}

type scopedRegistrar struct {
	engine  BidEngine
	groupID string
}

func (s scopedRegistrar) RegisterGroup(ctx context.Context, seed bidding.GroupSeed) error {
	if seed.Info.GroupID != s.groupID {
		return nil
	}
	return s.engine.RegisterGroup(ctx, seed)
}
