package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const WebhookPath = "/webhook"

// UpdateSink принимает обновления Telegram, пришедшие через вебхук
type UpdateSink interface {
	Push(ctx context.Context, update tgbotapi.Update) bool
}

// WebhookServer - HTTP-сервер для вебхука Telegram и проверки живости
type WebhookServer struct {
	logger     *zap.Logger
	sink       UpdateSink
	httpServer *http.Server
}

// NewWebhookServer создает сервер на указанном порту
func NewWebhookServer(logger *zap.Logger, sink UpdateSink, port int, debug bool) *WebhookServer {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &WebhookServer{logger: logger, sink: sink}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router собирает маршруты; отдельно от Start, чтобы его можно было тестировать
func (s *WebhookServer) Router() *gin.Engine {
	router := gin.New()
	router.Use(s.requestLogger(), gin.Recovery())

	router.GET("/", s.handleHealth)
	router.GET("/healthz", s.handleHealth)
	router.POST(WebhookPath, s.handleWebhook)
	return router
}

// Start запускает HTTP-сервер в фоне
func (s *WebhookServer) Start() {
	go func() {
		s.logger.Info("Запуск HTTP-сервера", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Ошибка HTTP-сервера", zap.Error(err))
		}
	}()
}

// Stop останавливает HTTP-сервер
func (s *WebhookServer) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *WebhookServer) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *WebhookServer) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.logger.Warn("Некорректное тело вебхука", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}

	if !s.sink.Push(c.Request.Context(), update) {
		s.logger.Debug("Обновление пропущено", zap.Int("update_id", update.UpdateID))
	}

	// Telegram повторяет доставку при любом ответе кроме 2xx
	c.Status(http.StatusOK)
}

func (s *WebhookServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("HTTP-запрос",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
