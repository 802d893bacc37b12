package main

import (
	"context"
	"time"

	"github.com/example/facility-checklists/internal/application"
	"github.com/example/facility-checklists/internal/persistence"
	"github.com/example/facility-checklists/internal/recurrence"
)

// repositoryAdapter exposes a persistence collection as an application
// repository, converting records on the way in and out.
type repositoryAdapter[A any, P persistence.Record] struct {
	store    persistence.Collection[P]
	toDomain func(P) A
	toRecord func(A) P
}

func newRepositoryAdapter[A any, P persistence.Record](store persistence.Collection[P], toDomain func(P) A, toRecord func(A) P) *repositoryAdapter[A, P] {
	return &repositoryAdapter[A, P]{store: store, toDomain: toDomain, toRecord: toRecord}
}

func (a *repositoryAdapter[A, P]) List(ctx context.Context) ([]A, error) {
	models, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]A, 0, len(models))
	for _, model := range models {
		out = append(out, a.toDomain(model))
	}
	return out, nil
}

func (a *repositoryAdapter[A, P]) Get(ctx context.Context, id string) (A, error) {
	model, err := a.store.Get(ctx, id)
	if err != nil {
		var zero A
		return zero, err
	}
	return a.toDomain(model), nil
}

func (a *repositoryAdapter[A, P]) Put(ctx context.Context, record A) error {
	return a.store.Put(ctx, a.toRecord(record))
}

func (a *repositoryAdapter[A, P]) Delete(ctx context.Context, id string) error {
	return a.store.Delete(ctx, id)
}

// executionLogAdapter exposes the append-only persistence log to the services.
type executionLogAdapter struct {
	log *persistence.ExecutionLog
}

func newExecutionLogAdapter(log *persistence.ExecutionLog) *executionLogAdapter {
	return &executionLogAdapter{log: log}
}

func (a *executionLogAdapter) Append(ctx context.Context, execution application.Execution, guard func([]application.Execution) error) error {
	var check func([]persistence.Execution) error
	if guard != nil {
		check = func(history []persistence.Execution) error {
			return guard(toApplicationExecutions(history))
		}
	}
	return a.log.Append(ctx, toPersistenceExecution(execution), check)
}

func (a *executionLogAdapter) List(ctx context.Context) ([]application.Execution, error) {
	models, err := a.log.List(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationExecutions(models), nil
}

func (a *executionLogAdapter) ListFor(ctx context.Context, checklistID, userID string) ([]application.Execution, error) {
	models, err := a.log.ListFor(ctx, checklistID, userID)
	if err != nil {
		return nil, err
	}
	return toApplicationExecutions(models), nil
}

// repositories bundles the application views of one storage backend.
type repositories struct {
	users          application.Repository[application.User]
	clients        application.Repository[application.Client]
	locations      application.Repository[application.Location]
	categories     application.Repository[application.Term]
	checklistTypes application.Repository[application.Term]
	checklists     application.Repository[application.Checklist]
	executions     application.ExecutionLog
}

func newRepositories(stores persistence.Stores) repositories {
	return repositories{
		users:          newRepositoryAdapter(stores.Users, toApplicationUser, toPersistenceUser),
		clients:        newRepositoryAdapter(stores.Clients, toApplicationClient, toPersistenceClient),
		locations:      newRepositoryAdapter(stores.Locations, toApplicationLocation, toPersistenceLocation),
		categories:     newRepositoryAdapter(stores.Categories, toApplicationTerm, toPersistenceTerm),
		checklistTypes: newRepositoryAdapter(stores.ChecklistTypes, toApplicationTerm, toPersistenceTerm),
		checklists:     newRepositoryAdapter(stores.Checklists, toApplicationChecklist, toPersistenceChecklist),
		executions:     newExecutionLogAdapter(stores.Executions),
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:           model.ID,
		Username:     model.Username,
		Name:         model.Name,
		PasswordHash: model.PasswordHash,
		IsAdmin:      model.IsAdmin,
		Category:     model.Category,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Name:         user.Name,
		IsAdmin:      user.IsAdmin,
		Category:     user.Category,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationClient(model persistence.Client) application.Client {
	return application.Client(model)
}

func toPersistenceClient(client application.Client) persistence.Client {
	return persistence.Client(client)
}

func toApplicationLocation(model persistence.Location) application.Location {
	return application.Location(model)
}

func toPersistenceLocation(location application.Location) persistence.Location {
	return persistence.Location(location)
}

func toApplicationTerm(model persistence.Term) application.Term {
	return application.Term(model)
}

func toPersistenceTerm(term application.Term) persistence.Term {
	return persistence.Term(term)
}

func toApplicationChecklist(model persistence.Checklist) application.Checklist {
	items := make([]application.ChecklistItem, 0, len(model.Items))
	for _, item := range model.Items {
		items = append(items, application.ChecklistItem(item))
	}
	assigned := ""
	if model.AssignedTo != nil {
		assigned = *model.AssignedTo
	}
	return application.Checklist{
		ID:            model.ID,
		Title:         model.Title,
		Description:   model.Description,
		ClientID:      model.ClientID,
		LocationID:    model.LocationID,
		TypeID:        model.TypeID,
		AssignedTo:    assigned,
		Periodicity:   recurrence.Periodicity(model.Periodicity),
		CustomDays:    model.CustomDays,
		Time:          model.Time,
		Validity:      cloneTime(model.Validity),
		RequirePhotos: model.RequirePhotos,
		Items:         items,
		Active:        model.Active,
		QRCodePath:    model.QRCodePath,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceChecklist(checklist application.Checklist) persistence.Checklist {
	items := make([]persistence.ChecklistItem, 0, len(checklist.Items))
	for _, item := range checklist.Items {
		items = append(items, persistence.ChecklistItem(item))
	}
	var assigned *string
	if checklist.AssignedTo != "" {
		value := checklist.AssignedTo
		assigned = &value
	}
	return persistence.Checklist{
		ID:            checklist.ID,
		Title:         checklist.Title,
		Description:   checklist.Description,
		ClientID:      checklist.ClientID,
		LocationID:    checklist.LocationID,
		TypeID:        checklist.TypeID,
		AssignedTo:    assigned,
		Periodicity:   string(checklist.Periodicity),
		CustomDays:    checklist.CustomDays,
		Time:          checklist.Time,
		Validity:      cloneTime(checklist.Validity),
		RequirePhotos: checklist.RequirePhotos,
		Items:         items,
		Active:        checklist.Active,
		QRCodePath:    checklist.QRCodePath,
		CreatedAt:     checklist.CreatedAt,
		UpdatedAt:     checklist.UpdatedAt,
	}
}

func toApplicationExecutions(models []persistence.Execution) []application.Execution {
	out := make([]application.Execution, 0, len(models))
	for _, model := range models {
		out = append(out, application.Execution(model))
	}
	return out
}

func toPersistenceExecution(execution application.Execution) persistence.Execution {
	return persistence.Execution(execution)
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
