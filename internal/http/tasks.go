package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	queue TaskQueue
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue) *TasksController {
	return &TasksController{queue: queue}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

var taskTypes = []TaskTypeInfo{
	{Type: tasks.QueueEnrichBook, Description: "Refresh one book's metadata by ISBN (requires book_id)"},
	{Type: tasks.QueueEnrichAllBooks, Description: "Refresh every book still carrying placeholder metadata"},
	{Type: tasks.QueueOverdueScan, Description: "Log all active loans past their due date"},
	{Type: tasks.QueueCleanupAuditEvents, Description: "Delete audit events older than the retention period"},
}

// ListTaskTypes handles GET /api/v1/tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"task_types": taskTypes})
}

// GetTaskStatus handles GET /api/v1/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "Task not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// BookID is required for enrich_book task
	BookID string `json:"book_id,omitempty"`
	// RetentionDays overrides the default for cleanup_audit_events
	RetentionDays int `json:"retention_days,omitempty" binding:"omitempty,min=1"`
}

// RunTask handles POST /api/v1/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	task, msg := buildTask(taskType, req)
	if task == nil {
		respondBadRequest(c, msg)
		return
	}

	id, err := tc.queue.Enqueue(task)
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": id,
		"type":    taskType,
		"message": "task enqueued",
	})
}

// buildTask maps a task type to its payload, or returns a reason it cannot.
func buildTask(taskType string, req RunTaskRequest) (backlite.Task, string) {
	switch taskType {
	case tasks.QueueEnrichBook:
		if req.BookID == "" {
			return nil, "book_id is required for enrich_book task"
		}
		return tasks.EnrichBookTask{BookID: req.BookID}, ""
	case tasks.QueueEnrichAllBooks:
		return tasks.EnrichAllBooksTask{}, ""
	case tasks.QueueOverdueScan:
		return tasks.OverdueScanTask{}, ""
	case tasks.QueueCleanupAuditEvents:
		return tasks.CleanupAuditEventsTask{RetentionDays: req.RetentionDays}, ""
	}
	return nil, fmt.Sprintf("unknown task type: %s", taskType)
}

var taskStatusNames = map[backlite.TaskStatus]string{
	backlite.TaskStatusPending:  "pending",
	backlite.TaskStatusRunning:  "running",
	backlite.TaskStatusSuccess:  "success",
	backlite.TaskStatusFailure:  "failure",
	backlite.TaskStatusNotFound: "not_found",
}

func taskStatusToString(status backlite.TaskStatus) string {
	if name, ok := taskStatusNames[status]; ok {
		return name
	}
	return "unknown"
}
