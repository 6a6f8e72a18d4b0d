package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	limit, ok := parseLimit(r)
	if !ok {
		BadRequestError("limit must be a positive integer").Write(w)
		return
	}

	txs, err := s.svc.Transactions.List(ctx, userID, limit)
	if err != nil {
		s.structured.LogError(ctx, "Failed to list transactions", err, log.ComponentTransaction, log.OpList,
			log.NewFields().WithUser(userID))
		DomainErrorResponse(err).Write(w)
		return
	}
	s.writeTransactions(w, txs)
}

// handleRecentTransactions returns the last few transactions for the dashboard.
func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	txs, err := s.svc.Transactions.Recent(ctx, userID)
	if err != nil {
		s.structured.LogError(ctx, "Failed to list recent transactions", err, log.ComponentTransaction, log.OpList,
			log.NewFields().WithUser(userID))
		DomainErrorResponse(err).Write(w)
		return
	}
	s.writeTransactions(w, txs)
}

func (s *Server) writeTransactions(w http.ResponseWriter, txs []core.Transaction) {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionJSON(tx))
	}
	NewJSONResponse().Data(map[string]interface{}{"transactions": out}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		DomainErrorResponse(err).Write(w)
		return
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		DomainErrorResponse(err).Write(w)
		return
	}
	in := services.TransactionInput{
		Type:         typ,
		Amount:       amount,
		CategoryName: p.Get("category"),
		Description:  p.Get("description"),
	}
	if p.Has("date") {
		if in.Date, err = core.ParseDate(p.Get("date")); err != nil {
			DomainErrorResponse(err).Write(w)
			return
		}
	}

	saved, err := s.svc.Transactions.Record(ctx, userID, in)
	if err != nil {
		if StatusForError(err) == http.StatusInternalServerError {
			s.structured.LogError(ctx, "Failed to record transaction", err, log.ComponentTransaction, log.OpCreate,
				log.NewFields().WithUser(userID))
		}
		DomainErrorResponse(err).Write(w)
		return
	}

	s.structured.LogTransactionRecorded(ctx, saved)
	s.appMetrics.transactionsRecorded.Add(1)
	s.invalidateUser(ctx, userID)

	NewJSONResponse().Status(http.StatusCreated).Data(newTransactionJSON(saved)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userFromContext(ctx)

	id, ok := pathID(r)
	if !ok {
		NotFoundError("transaction not found").Write(w)
		return
	}
	if err := s.svc.Transactions.Delete(ctx, userID, id); err != nil {
		if StatusForError(err) == http.StatusInternalServerError {
			s.structured.LogError(ctx, "Failed to delete transaction", err, log.ComponentTransaction, log.OpDelete,
				log.NewFields().WithUser(userID))
		}
		DomainErrorResponse(err).Write(w)
		return
	}

	s.invalidateUser(ctx, userID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
