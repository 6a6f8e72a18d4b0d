package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	cats, err := s.svc.Categories.List(ctx, userID)
	if err != nil {
		s.structured.LogError(ctx, "Failed to list categories", err, log.ComponentCategory, log.OpList,
			log.NewFields().WithUser(userID))
		DomainErrorResponse(err).Write(w)
		return
	}
	s.writeCategories(w, http.StatusOK, cats)
}

// handleSeedCategories creates the default categories the user is missing.
func (s *Server) handleSeedCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	created, err := s.svc.Categories.SeedDefaults(ctx, userID)
	if err != nil {
		s.structured.LogError(ctx, "Failed to seed categories", err, log.ComponentCategory, log.OpCreate,
			log.NewFields().WithUser(userID))
		DomainErrorResponse(err).Write(w)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Default categories seeded",
		log.FieldUserID, userID, "created", len(created))
	s.writeCategories(w, http.StatusOK, created)
}

// handleDeleteCategory removes the category and its budgets; its transactions become uncategorized.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	id, ok := pathID(r)
	if !ok {
		NotFoundError("category not found").Write(w)
		return
	}
	if err := s.svc.Categories.Delete(ctx, userID, id); err != nil {
		if StatusForError(err) == http.StatusInternalServerError {
			s.structured.LogError(ctx, "Failed to delete category", err, log.ComponentCategory, log.OpDelete,
				log.NewFields().WithUser(userID))
		}
		DomainErrorResponse(err).Write(w)
		return
	}

	s.invalidateUser(ctx, userID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) writeCategories(w http.ResponseWriter, status int, cats []core.Category) {
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryJSON(c))
	}
	NewJSONResponse().Status(status).Data(map[string]interface{}{"categories": out}).Write(w)
}
