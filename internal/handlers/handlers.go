package handlers

import (
	"turnstile/internal/cache"
	"turnstile/internal/queue"
	"turnstile/internal/service"
)

type Handlers struct {
	services     *service.Services
	queueCtrl    *queue.Controller
	valkeyClient *cache.ValkeyClient
}

func NewHandlers(services *service.Services, queueCtrl *queue.Controller, valkeyClient *cache.ValkeyClient) *Handlers {
	return &Handlers{
		services:     services,
		queueCtrl:    queueCtrl,
		valkeyClient: valkeyClient,
	}
}
