package http

import (
	"net/http"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// handleBudgetSummary returns every budget of the user evaluated at ?date= (default today).
func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	on, err := parseDateQuery(r, "date", s.today())
	if err != nil {
		DomainErrorResponse(err).Write(w)
		return
	}

	resp, err := s.budgetSummary(ctx, userID, on)
	if err != nil {
		s.structured.LogError(ctx, "Failed to build budget summary", err, log.ComponentBudget, log.OpSummary,
			log.NewFields().WithUser(userID))
		DomainErrorResponse(err).Write(w)
		return
	}
	NewJSONResponse().Data(resp).Write(w)
}

// handleUpsertBudget creates a budget, or updates it in place when id is given.
func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		DomainErrorResponse(err).Write(w)
		return
	}
	period, err := core.ParsePeriodKind(p.Get("period"))
	if err != nil {
		DomainErrorResponse(err).Write(w)
		return
	}

	in := services.BudgetInput{
		CategoryName: p.Get("category"),
		Amount:       amount,
		Period:       period,
	}
	if p.Has("id") {
		id, err := strconv.ParseInt(p.Get("id"), 10, 64)
		if err != nil || id <= 0 {
			NotFoundError("budget not found").Write(w)
			return
		}
		in.ID = &id
	}
	if p.Has("start_date") {
		start, err := core.ParseDate(p.Get("start_date"))
		if err != nil {
			DomainErrorResponse(err).Write(w)
			return
		}
		in.StartDate = &start
	}

	saved, err := s.svc.Budgets.Upsert(ctx, userID, in, s.today())
	if err != nil {
		if StatusForError(err) == http.StatusInternalServerError {
			s.structured.LogError(ctx, "Failed to save budget", err, log.ComponentBudget, log.OpUpdate,
				log.NewFields().WithUser(userID))
		}
		DomainErrorResponse(err).Write(w)
		return
	}

	op := log.OpCreate
	if in.ID != nil {
		op = log.OpUpdate
	}
	s.structured.LogBudgetSaved(ctx, saved, op)
	s.appMetrics.budgetsSaved.Add(1)
	s.invalidateUser(ctx, userID)

	NewJSONResponse().Data(newBudgetJSON(saved)).Write(w)
}

// handleDeleteBudget always answers 204; unknown or foreign ids are ignored.
func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	if id, ok := pathID(r); ok {
		if err := s.svc.Budgets.Delete(ctx, userID, id); err != nil {
			s.structured.LogError(ctx, "Failed to delete budget", err, log.ComponentBudget, log.OpDelete,
				log.NewFields().WithUser(userID))
			InternalServerError().Write(w)
			return
		}
		s.invalidateUser(ctx, userID)
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
