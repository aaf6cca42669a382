package grpc

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName - имя сервиса в ответах grpc.health.v1
const ServiceName = "ai-master-bot"

// HealthServer отдает состояние бота по протоколу grpc.health.v1
type HealthServer struct {
	logger *zap.Logger
	server *grpc.Server
	health *health.Server
}

// NewHealthServer создает сервер; до вызова SetServing бот считается
// неготовым
func NewHealthServer(logger *zap.Logger) *HealthServer {
	h := &HealthServer{
		logger: logger,
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	h.SetServing(false)
	return h
}

// Listen открывает адрес и обслуживает его в фоне
func (h *HealthServer) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ошибка запуска gRPC health сервера: %w", err)
	}
	h.Serve(lis)
	return nil
}

// Serve обслуживает уже открытый listener в фоне
func (h *HealthServer) Serve(lis net.Listener) {
	h.logger.Info("Запуск gRPC health сервера", zap.String("addr", lis.Addr().String()))
	go func() {
		if err := h.server.Serve(lis); err != nil {
			h.logger.Error("Ошибка gRPC health сервера", zap.Error(err))
		}
	}()
}

// SetServing переключает статус для общего и именованного сервиса
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Stop помечает сервис неготовым и останавливает сервер
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
