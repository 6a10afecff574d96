package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/todohub/internal/cache"
	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/http/middlewares"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/geocoder89/todohub/internal/utils"
	"github.com/gin-gonic/gin"
)

// TodosStore is the persistence the todo handlers need. Ownership is enforced
// by the store so lookup, check and mutation share one lock.
type TodosStore interface {
	Create(ctx context.Context, t todo.Todo) (todo.Todo, error)
	List(ctx context.Context, userID string, f todo.ListFilter) ([]todo.Todo, error)
	Update(ctx context.Context, userID, id string, p todo.Patch, now time.Time) (todo.Todo, error)
	Delete(ctx context.Context, userID, id string) error
}

type TodosHandler struct {
	repo  TodosStore
	lists cache.TodoLists
	prom  *observability.Prom
	loc   *time.Location
	now   func() time.Time
}

// NewTodosHandler wires the store. lists and prom may be nil.
func NewTodosHandler(repo TodosStore, lists cache.TodoLists, prom *observability.Prom, loc *time.Location) *TodosHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TodosHandler{
		repo:  repo,
		lists: lists,
		prom:  prom,
		loc:   loc,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, for tests.
func (h *TodosHandler) WithClock(now func() time.Time) *TodosHandler {
	h.now = now
	return h
}

const storeTimeout = 3 * time.Second

func storeCtx(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), storeTimeout)
}

// sessionUser resolves the authenticated user or writes a 401.
func sessionUser(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "You must be signed in")
		return "", false
	}
	return userID, true
}

// todoID returns the path id. Anything that is not a UUID cannot exist.
func todoID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Todo not found")
		return "", false
	}
	return id, true
}

func (h *TodosHandler) invalidate(ctx context.Context, userID string) {
	if h.lists == nil {
		return
	}
	if err := h.lists.InvalidateUser(ctx, userID); err != nil {
		slog.Default().WarnContext(ctx, "list cache invalidation failed", "err", err)
	}
}

// respondStoreError maps ownership and existence errors; anything else is a 500.
func (h *TodosHandler) respondStoreError(ctx *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, todo.ErrNotFound):
		h.prom.ObserveMutation(op, "not_found")
		RespondNotFound(ctx, "Todo not found")
	case errors.Is(err, todo.ErrForbidden):
		h.prom.ObserveMutation(op, "forbidden")
		RespondForbidden(ctx, "You do not have access to this todo")
	default:
		h.prom.ObserveMutation(op, "error")
		RespondInternal(ctx, "Could not "+op+" todo", err)
	}
}

func (h *TodosHandler) List(ctx *gin.Context) {
	userID, ok := sessionUser(ctx)
	if !ok {
		return
	}

	filter, err := todo.ParseListFilter(ctx.Query("status"), ctx.Query("search"), ctx.Query("sortBy"))
	if err != nil {
		RespondBadQuery(ctx, err.Error())
		return
	}

	items, err := h.list(ctx, userID, filter)
	if err != nil {
		RespondInternal(ctx, "Could not list todos", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}

// list reads through the cache. Cache failures degrade to the store.
func (h *TodosHandler) list(ctx *gin.Context, userID string, filter todo.ListFilter) ([]todo.Todo, error) {
	cctx, cancel := storeCtx(ctx)
	defer cancel()

	key := utils.BuildTodoListCacheKey(filter)

	// the generation is read before the store so a mutation that lands while
	// we query makes the Set below a no-op
	var (
		gen       uint64
		cacheable bool
	)

	if h.lists != nil {
		cached, hit, err := h.lists.Get(cctx, userID, key)
		if err != nil {
			slog.Default().WarnContext(cctx, "list cache read failed", "err", err)
		}
		if hit {
			return cached, nil
		}

		gen, err = h.lists.Generation(cctx, userID)
		if err != nil {
			slog.Default().WarnContext(cctx, "list cache generation read failed", "err", err)
		}
		cacheable = err == nil
	}

	items, err := h.repo.List(cctx, userID, filter)
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []todo.Todo{}
	}

	if cacheable {
		if err := h.lists.Set(cctx, userID, key, gen, items); err != nil {
			slog.Default().WarnContext(cctx, "list cache write failed", "err", err)
		}
	}

	return items, nil
}

func (h *TodosHandler) Create(ctx *gin.Context) {
	userID, ok := sessionUser(ctx)
	if !ok {
		return
	}

	var req todo.CreateTodoRequest

	if !BindJSON(ctx, &req) {
		return
	}

	t, err := todo.NewFromCreateRequest(userID, req, h.now())
	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "deadline", Rule: "datetime", Message: validationMessage("datetime", "")}},
		})
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	created, err := h.repo.Create(cctx, t)
	if err != nil {
		h.prom.ObserveMutation("create", "error")
		RespondInternal(ctx, "Could not create todo", err)
		return
	}

	h.invalidate(cctx, userID)
	h.prom.ObserveMutation("create", "ok")

	ctx.JSON(http.StatusCreated, created)
}

func (h *TodosHandler) Update(ctx *gin.Context) {
	userID, ok := sessionUser(ctx)
	if !ok {
		return
	}

	id, ok := todoID(ctx)
	if !ok {
		return
	}

	var req todo.UpdateTodoRequest

	if !BindJSON(ctx, &req) {
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", gin.H{
			"fields": []FieldError{{Field: "deadline", Rule: "datetime", Message: validationMessage("datetime", "")}},
		})
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	updated, err := h.repo.Update(cctx, userID, id, patch, h.now())
	if err != nil {
		h.respondStoreError(ctx, "update", err)
		return
	}

	// an empty patch leaves the record untouched, so cached lists stay valid
	if !patch.IsEmpty() {
		h.invalidate(cctx, userID)
	}
	h.prom.ObserveMutation("update", "ok")

	ctx.JSON(http.StatusOK, updated)
}

func (h *TodosHandler) Delete(ctx *gin.Context) {
	userID, ok := sessionUser(ctx)
	if !ok {
		return
	}

	id, ok := todoID(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := h.repo.Delete(cctx, userID, id); err != nil {
		h.respondStoreError(ctx, "delete", err)
		return
	}

	h.invalidate(cctx, userID)
	h.prom.ObserveMutation("delete", "ok")

	ctx.JSON(http.StatusOK, gin.H{"message": "Todo deleted"})
}
