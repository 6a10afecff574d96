package handlers

import (
	"net/http"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/gin-gonic/gin"
)

type overviewItem struct {
	todo.Todo
	Badge todo.Badge `json:"badge"`
}

type overviewResponse struct {
	Window todo.Window    `json:"window"`
	Stats  todo.Stats     `json:"stats"`
	Items  []overviewItem `json:"items"`
}

// Overview serves the dashboard view: the todos inside the requested window
// ordered by deadline, each with its badge, and stats over that same set.
func (h *TodosHandler) Overview(ctx *gin.Context) {
	userID, ok := sessionUser(ctx)
	if !ok {
		return
	}

	window, err := todo.ParseWindow(ctx.Query("window"))
	if err != nil {
		RespondBadQuery(ctx, err.Error())
		return
	}

	all, err := h.list(ctx, userID, todo.ListFilter{SortBy: todo.SortByDeadline})
	if err != nil {
		RespondInternal(ctx, "Could not load overview", err)
		return
	}

	now := h.now()
	visible := todo.FilterWindow(all, window, now, h.loc)

	items := make([]overviewItem, 0, len(visible))
	for _, t := range visible {
		items = append(items, overviewItem{Todo: t, Badge: todo.SmartBadge(t, now, h.loc)})
	}

	ctx.JSON(http.StatusOK, overviewResponse{
		Window: window,
		Stats:  todo.ComputeStats(visible, now),
		Items:  items,
	})
}
