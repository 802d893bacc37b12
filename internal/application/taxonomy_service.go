package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TaxonomyService manages a list of uniquely named terms. One instance serves
// user categories and another checklist types.
type TaxonomyService struct {
	name        string
	terms       Repository[Term]
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTaxonomyService constructs a taxonomy service. name labels log lines.
func NewTaxonomyService(name string, terms Repository[Term], idGenerator func() string, now func() time.Time) *TaxonomyService {
	return NewTaxonomyServiceWithLogger(name, terms, idGenerator, now, nil)
}

// NewTaxonomyServiceWithLogger constructs a taxonomy service with a specified logger.
func NewTaxonomyServiceWithLogger(name string, terms Repository[Term], idGenerator func() string, now func() time.Time, logger *slog.Logger) *TaxonomyService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if name == "" {
		name = "TaxonomyService"
	}
	return &TaxonomyService{name: name, terms: terms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *TaxonomyService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, s.name, operation, attrs...)
}

// CreateTerm validates input and persists a new term for administrators.
func (s *TaxonomyService) CreateTerm(ctx context.Context, principal Principal, input TermInput) (term Term, err error) {
	if s == nil {
		err = fmt.Errorf("TaxonomyService is nil")
		return
	}
	if s.terms == nil {
		err = fmt.Errorf("term repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateTerm", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create term", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("term_id", term.ID).InfoContext(ctx, "term created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input = TermInput{Name: strings.TrimSpace(input.Name), Description: strings.TrimSpace(input.Description)}
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureUniqueName(ctx, "", input.Name); err != nil {
		return
	}

	term = Term{ID: s.idGenerator(), Name: input.Name, Description: input.Description, CreatedAt: s.now()}
	term.UpdatedAt = term.CreatedAt
	if err = s.terms.Put(ctx, term); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateTerm validates input and updates an existing term for administrators.
func (s *TaxonomyService) UpdateTerm(ctx context.Context, principal Principal, termID string, input TermInput) (term Term, err error) {
	if s == nil {
		err = fmt.Errorf("TaxonomyService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.terms == nil {
		err = fmt.Errorf("term repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateTerm", "principal_id", principal.UserID, "term_id", termID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update term", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "term updated")
	}()

	var existing Term
	existing, err = s.terms.Get(ctx, termID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input = TermInput{Name: strings.TrimSpace(input.Name), Description: strings.TrimSpace(input.Description)}
	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureUniqueName(ctx, existing.ID, input.Name); err != nil {
		return
	}

	term = existing
	term.Name = input.Name
	term.Description = input.Description
	term.UpdatedAt = s.now()
	if err = s.terms.Put(ctx, term); err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteTerm removes a term when requested by an administrator.
func (s *TaxonomyService) DeleteTerm(ctx context.Context, principal Principal, termID string) error {
	if s == nil {
		return fmt.Errorf("TaxonomyService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.terms == nil {
		return fmt.Errorf("term repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteTerm", "principal_id", principal.UserID, "term_id", termID)
	if err := s.terms.Delete(ctx, termID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete term", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "term deleted")
	return nil
}

// GetTerm returns one term.
func (s *TaxonomyService) GetTerm(ctx context.Context, termID string) (Term, error) {
	if s == nil {
		return Term{}, fmt.Errorf("TaxonomyService is nil")
	}
	if s.terms == nil {
		return Term{}, ErrNotFound
	}
	term, err := s.terms.Get(ctx, termID)
	if err != nil {
		return Term{}, mapRepoError(err)
	}
	return term, nil
}

// ListTerms returns every term ordered by name.
func (s *TaxonomyService) ListTerms(ctx context.Context) ([]Term, error) {
	if s == nil {
		return nil, fmt.Errorf("TaxonomyService is nil")
	}
	if s.terms == nil {
		return nil, nil
	}
	terms, err := s.terms.List(ctx)
	if err != nil {
		s.loggerWith(ctx, "ListTerms").ErrorContext(ctx, "failed to list terms", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	sortByName(terms, func(t Term) string { return t.Name }, func(t Term) string { return t.ID })
	return terms, nil
}

// EnsureTerms creates the named terms that do not exist yet and reports how
// many were added. It backs the seed command.
func (s *TaxonomyService) EnsureTerms(ctx context.Context, defaults []TermInput) (int, error) {
	if s == nil || s.terms == nil {
		return 0, fmt.Errorf("TaxonomyService is not configured")
	}
	existing, err := s.terms.List(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		known[strings.ToLower(t.Name)] = struct{}{}
	}

	added := 0
	for _, input := range defaults {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			continue
		}
		if _, ok := known[strings.ToLower(name)]; ok {
			continue
		}
		now := s.now()
		term := Term{ID: s.idGenerator(), Name: name, Description: strings.TrimSpace(input.Description), CreatedAt: now, UpdatedAt: now}
		if err := s.terms.Put(ctx, term); err != nil {
			return added, mapRepoError(err)
		}
		known[strings.ToLower(name)] = struct{}{}
		added++
	}
	if added > 0 {
		s.loggerWith(ctx, "EnsureTerms").InfoContext(ctx, "default terms created", "count", added)
	}
	return added, nil
}

func (s *TaxonomyService) ensureUniqueName(ctx context.Context, selfID, name string) error {
	terms, err := s.terms.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range terms {
		if t.ID != selfID && strings.EqualFold(t.Name, name) {
			return ErrAlreadyExists
		}
	}
	return nil
}
