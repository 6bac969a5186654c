package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"daily-tracker/internal/service"
	"daily-tracker/internal/stats"
)

type entryRequest struct {
	Task        *string `json:"task"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Completed   *bool   `json:"completed"`
}

type toggleRequest struct {
	Task string `json:"task"`
}

type userRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Username  *string `json:"username"`
	Role      *string `json:"role"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "Daily Tracker API is running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "healthy")
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// Entry handlers

func (s *Server) handleCreateEntry(c *gin.Context) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	input := service.EntryInput{}
	if req.Task != nil {
		input.Task = *req.Task
	}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.Completed != nil {
		input.Completed = *req.Completed
	}
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		date, err := parseDate(*req.Date, s.entries.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input.Date = &date
	}

	entry, err := s.entries.Create(c.Request.Context(), currentUser(c), input)
	if err != nil {
		entryError(c, "create entry", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleListEntries(c *gin.Context) {
	entries, err := s.entries.List(c.Request.Context(), currentUser(c))
	if err != nil {
		entryError(c, "list entries", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleUpdateEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}

	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	patch := service.EntryPatch{
		Task:        req.Task,
		Description: req.Description,
		Completed:   req.Completed,
	}
	if req.Date != nil && strings.TrimSpace(*req.Date) != "" {
		date, err := parseDate(*req.Date, s.entries.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.Date = &date
	}

	entry, err := s.entries.Update(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		entryError(c, "update entry", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
		return
	}
	if err := s.entries.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		entryError(c, "delete entry", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}

// handleDeleteTask removes every entry of the task named in ?task=.
func (s *Server) handleDeleteTask(c *gin.Context) {
	task := strings.TrimSpace(c.Query("task"))
	if task == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task is required"})
		return
	}
	removed, err := s.entries.DeleteTask(c.Request.Context(), currentUser(c), task)
	if err != nil {
		entryError(c, "delete task", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted", "removed": removed})
}

func (s *Server) handleToggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	completed, err := s.entries.ToggleToday(c.Request.Context(), currentUser(c), req.Task)
	if err != nil {
		entryError(c, "toggle entry", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": strings.TrimSpace(req.Task), "completed": completed})
}

func (s *Server) handleSummary(c *gin.Context) {
	summary, _, err := s.entries.Progress(c.Request.Context(), currentUser(c))
	if err != nil {
		entryError(c, "summary", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"marks":   summary.Marks.Sorted(),
	})
}

func (s *Server) handleEntriesOn(c *gin.Context) {
	day, err := stats.ParseDay(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	entries, err := s.entries.EntriesOn(c.Request.Context(), currentUser(c), day)
	if err != nil {
		entryError(c, "entries on day", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "entries": entries})
}

// Admin handlers

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.admin.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	user, err := s.admin.UpdateUser(c.Request.Context(), currentUser(c), id, service.UserPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Role:      req.Role,
	})
	if err != nil {
		adminError(c, "Failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}
	if err := s.admin.DeleteUser(c.Request.Context(), currentUser(c), id); err != nil {
		adminError(c, "Server error", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (s *Server) handleUserEntries(c *gin.Context) {
	id, ok := parseID(c, "userId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}
	entries, err := s.admin.UserEntries(c.Request.Context(), id)
	if err != nil {
		adminError(c, "Failed to fetch entries", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleLogs(c *gin.Context) {
	logs, err := s.admin.Logs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

func entryError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrTaskRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task is required"})
	case errors.Is(err, service.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not found"})
	default:
		log.Printf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func adminError(c *gin.Context, fallback string, err error) {
	switch {
	case errors.Is(err, service.ErrSelfEdit), errors.Is(err, service.ErrLastAdmin):
		c.JSON(http.StatusForbidden, gin.H{"message": capitalize(err.Error())})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	case errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"message": capitalize(err.Error())})
	default:
		log.Printf("admin: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD days; a plain day
// means noon in loc so it stays on that day in every nearby zone.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := stats.ParseDay(raw)
	if err != nil {
		return time.Time{}, errors.New("date must be RFC 3339 or YYYY-MM-DD")
	}
	return day.Time(loc).Add(12 * time.Hour), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
