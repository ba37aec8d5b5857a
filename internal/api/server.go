package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alerteye/internal/alert"
	"github.com/alerteye/internal/auth"
	"github.com/alerteye/internal/database"
	"github.com/alerteye/internal/models"
	"github.com/alerteye/internal/notify"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes the alert manager and dispatcher over HTTP.
type Server struct {
	router     *gin.Engine
	manager    *alert.Manager
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

func NewServer(manager *alert.Manager, dispatcher *notify.Dispatcher, logger *zap.Logger) *Server {
	s := &Server{
		router:     gin.Default(),
		manager:    manager,
		dispatcher: dispatcher,
		logger:     logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")

	v1.POST("/auth/login", s.login)

	authorized := v1.Group("")
	authorized.Use(auth.AuthMiddleware())
	{
		alerts := authorized.Group("/alerts")
		{
			alerts.POST("", s.ingestAlert)
			alerts.GET("", s.listAlerts)
			alerts.GET("/active", s.listActiveAlerts)
			alerts.GET("/attention", s.listAttentionAlerts)
			alerts.GET("/summary", s.alertSummary)
			alerts.GET("/stats", s.alertStats)
			alerts.GET("/history", s.alertHistory)
			alerts.GET("/archive", s.alertArchive)
			alerts.GET("/:id", s.getAlert)
			alerts.PUT("/:id/acknowledge", s.acknowledgeAlert)
			alerts.PUT("/:id/resolve", s.resolveAlert)
			alerts.PUT("/:id/suppress", s.suppressAlert)
		}

		rules := authorized.Group("/rules")
		{
			rules.GET("", s.listRules)
			rules.POST("", auth.RequireRole(models.RoleAdmin), s.addRule)
			rules.DELETE("/:id", auth.RequireRole(models.RoleAdmin), s.removeRule)
		}

		notifications := authorized.Group("/notifications")
		{
			notifications.POST("", s.sendNotification)
			notifications.POST("/fallback", s.sendWithFallback)
			notifications.GET("/stats", s.notificationStats)
		}
	}
}

// Run starts the HTTP server.
func (s *Server) Run(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := database.GetDB().Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is inactive"})
		return
	}

	token, err := auth.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

type ingestRequest struct {
	Source      string                 `json:"source" binding:"required"`
	Level       string                 `json:"level" binding:"required"`
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
	Category    string                 `json:"category"`
	Tags        []string               `json:"tags"`
}

func (s *Server) ingestAlert(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := s.manager.ReceiveAlert(
		models.AlertSource(req.Source),
		models.AlertLevel(req.Level),
		req.Title,
		req.Description,
		req.Metadata,
		req.Category,
		req.Tags,
	)
	if id == "" {
		c.JSON(http.StatusOK, gin.H{"accepted": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"accepted": true, "alert_id": id})
}

// listAlerts supports filtering via query parameters: status, level,
// source, category, tag, active, attention, min_age, max_age.
func (s *Server) listAlerts(c *gin.Context) {
	var filter alert.AlertFilter

	if v := c.Query("status"); v != "" {
		status := models.AlertStatus(v)
		filter.Status = &status
	}
	if v := c.Query("level"); v != "" {
		level := models.AlertLevel(v)
		filter.Level = &level
	}
	if v := c.Query("source"); v != "" {
		source := models.AlertSource(v)
		filter.Source = &source
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}
	if v := c.Query("tag"); v != "" {
		filter.Tag = &v
	}
	if v := c.Query("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}
	if v := c.Query("attention"); v != "" {
		attention := v == "true"
		filter.RequiresAttention = &attention
	}
	if v := c.Query("min_age"); v != "" {
		if age, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinAgeSeconds = &age
		}
	}
	if v := c.Query("max_age"); v != "" {
		if age, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxAgeSeconds = &age
		}
	}

	alerts := s.manager.GetAlerts(filter)
	c.JSON(http.StatusOK, gin.H{"alerts": serializeAll(alerts), "count": len(alerts)})
}

func (s *Server) listActiveAlerts(c *gin.Context) {
	alerts := s.manager.GetActiveAlerts()
	c.JSON(http.StatusOK, gin.H{"alerts": serializeAll(alerts), "count": len(alerts)})
}

func (s *Server) listAttentionAlerts(c *gin.Context) {
	alerts := s.manager.GetAlertsRequiringAttention()
	c.JSON(http.StatusOK, gin.H{"alerts": serializeAll(alerts), "count": len(alerts)})
}

func (s *Server) getAlert(c *gin.Context) {
	a, ok := s.manager.GetAlert(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, a.Serialized())
}

type actorRequest struct {
	User   string `json:"user"`
	Reason string `json:"reason"`
}

func (s *Server) acknowledgeAlert(c *gin.Context) {
	var req actorRequest
	_ = c.ShouldBindJSON(&req)
	if req.User == "" {
		req.User = c.GetString("role")
	}
	if !s.manager.Acknowledge(c.Param("id"), req.User) {
		c.JSON(http.StatusConflict, gin.H{"error": "alert not found or not active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
}

func (s *Server) resolveAlert(c *gin.Context) {
	var req actorRequest
	_ = c.ShouldBindJSON(&req)
	if req.User == "" {
		req.User = c.GetString("role")
	}
	if !s.manager.Resolve(c.Param("id"), req.User) {
		c.JSON(http.StatusConflict, gin.H{"error": "alert not found or not active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

func (s *Server) suppressAlert(c *gin.Context) {
	var req actorRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "suppressed via api"
	}
	if !s.manager.Suppress(c.Param("id"), req.Reason) {
		c.JSON(http.StatusConflict, gin.H{"error": "alert not found or not active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "suppressed"})
}

func (s *Server) alertSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.GetSummary())
}

func (s *Server) alertStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.GetStatistics())
}

func (s *Server) alertHistory(c *gin.Context) {
	history := s.manager.History()
	c.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}

// alertArchive reads purged alerts from the durable archive.
func (s *Server) alertArchive(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	var archived []models.ArchivedAlert
	if err := database.GetDB().Order("archived_at desc").Limit(limit).Find(&archived).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query archive"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": archived, "count": len(archived)})
}

func (s *Server) listRules(c *gin.Context) {
	rules := s.manager.Rules()
	c.JSON(http.StatusOK, gin.H{"rules": rules, "count": len(rules)})
}

func (s *Server) addRule(c *gin.Context) {
	var rule models.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.manager.AddRule(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule_id": rule.RuleID})
}

func (s *Server) removeRule(c *gin.Context) {
	if !s.manager.RemoveRule(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

type notificationRequest struct {
	Title      string                 `json:"title" binding:"required"`
	Message    string                 `json:"message" binding:"required"`
	Channel    string                 `json:"channel" binding:"required"`
	Priority   string                 `json:"priority"`
	Data       map[string]interface{} `json:"data"`
	MaxRetries *int                   `json:"max_retries"`
	TTLSeconds int                    `json:"ttl_seconds"`
	Fallbacks  []string               `json:"fallbacks"`
}

func (s *Server) sendNotification(c *gin.Context) {
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	maxRetries := -1
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}
	id := s.dispatcher.SendNotification(
		req.Title, req.Message,
		models.NotificationChannel(req.Channel),
		models.ParsePriority(req.Priority),
		req.Data, maxRetries,
		time.Duration(req.TTLSeconds)*time.Second,
	)
	if id == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification rejected"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"notification_id": id})
}

func (s *Server) sendWithFallback(c *gin.Context) {
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fallbacks := make([]models.NotificationChannel, 0, len(req.Fallbacks))
	for _, f := range req.Fallbacks {
		fallbacks = append(fallbacks, models.NotificationChannel(f))
	}
	primaryID, fallbackIDs := s.dispatcher.SendWithFallback(
		req.Title, req.Message,
		models.NotificationChannel(req.Channel),
		models.ParsePriority(req.Priority),
		fallbacks, req.Data,
	)
	c.JSON(http.StatusAccepted, gin.H{
		"notification_id": primaryID,
		"fallback_ids":    fallbackIDs,
	})
}

func (s *Server) notificationStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.dispatcher.GetStats())
}

func serializeAll(alerts []*models.Alert) []models.SerializedAlert {
	out := make([]models.SerializedAlert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Serialized())
	}
	return out
}
