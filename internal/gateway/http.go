package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

const (
	eventTypeCommand   = "command"
	eventTypeComponent = "component"
	eventTypeMessage   = "message"
)

type inboundEvent struct {
	Type        string       `json:"type"`
	Name        string       `json:"name,omitempty"`
	CustomID    string       `json:"custom_id,omitempty"`
	Interaction *Interaction `json:"interaction,omitempty"`
	Message     *Message     `json:"message,omitempty"`
}

type commandEntry struct {
	description string
	handler     CommandHandler
}

type messageWaiter struct {
	channelID string
	match     func(Message) bool
	delivery  chan Message
}

// HTTPGateway talks to a chat-platform bridge: outbound REST calls against
// the bridge API, inbound commands/components/messages delivered to a
// webhook endpoint authenticated with a shared-secret JWT.
type HTTPGateway struct {
	cfg     config.GatewayConfig
	logger  *zap.Logger
	metrics *observability.Metrics
	tokens  *TokenManager
	client  *http.Client
	app     *fiber.App

	mu         sync.RWMutex
	commands   map[string]commandEntry
	components map[string]ComponentHandler

	waitMu  sync.Mutex
	waiters map[*messageWaiter]struct{}
}

// NewHTTPGateway constructs the gateway. Call Start to begin receiving
// events.
func NewHTTPGateway(cfg config.GatewayConfig, logger *zap.Logger, metrics *observability.Metrics) *HTTPGateway {
	gw := &HTTPGateway{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		tokens:     NewTokenManager(cfg.WebhookSecret),
		client:     &http.Client{Timeout: 15 * time.Second},
		commands:   make(map[string]commandEntry),
		components: make(map[string]ComponentHandler),
		waiters:    make(map[*messageWaiter]struct{}),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(gw.errorHandlingMiddleware())
	app.Post("/gateway/events", gw.authMiddleware(), gw.handleInbound)
	gw.app = app
	return gw
}

// Start pushes registered command definitions to the bridge and then serves
// the webhook endpoint. Blocks until Shutdown.
func (g *HTTPGateway) Start(addr string) error {
	if err := g.syncCommands(context.Background()); err != nil {
		g.logger.Warn("command sync failed", zap.Error(err))
	}
	return g.app.Listen(addr)
}

// Shutdown stops the webhook listener.
func (g *HTTPGateway) Shutdown() error {
	return g.app.Shutdown()
}

// RegisterCommand records a slash-command handler. Definitions are synced
// to the bridge once at Start.
func (g *HTTPGateway) RegisterCommand(name, description string, handler CommandHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commands[name] = commandEntry{description: description, handler: handler}
}

// RegisterComponentHandler records a handler for a component custom id.
func (g *HTTPGateway) RegisterComponentHandler(customID string, handler ComponentHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.components[customID] = handler
}

// CreateChannel provisions a channel under parentID with the given
// overwrites and returns its id.
func (g *HTTPGateway) CreateChannel(ctx context.Context, name string, overwrites []Overwrite, parentID string) (string, error) {
	payload := map[string]any{
		"name":       name,
		"parent_id":  parentID,
		"overwrites": overwrites,
	}
	var created struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/guilds/%s/channels", g.cfg.GuildID)
	if err := g.doRequest(ctx, http.MethodPost, path, payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// SetPermission applies a read/write overwrite for one subject on a channel.
func (g *HTTPGateway) SetPermission(ctx context.Context, channelID, subjectID string, perm Permission) error {
	path := fmt.Sprintf("/channels/%s/permissions/%s", channelID, subjectID)
	return g.doRequest(ctx, http.MethodPut, path, perm, nil)
}

// DeleteChannel removes the channel resource.
func (g *HTTPGateway) DeleteChannel(ctx context.Context, channelID string) error {
	return g.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s", channelID), nil, nil)
}

// SendMessage posts a message, optionally with interactive components.
func (g *HTTPGateway) SendMessage(ctx context.Context, channelID, content string, components ...Component) error {
	payload := map[string]any{"content": content}
	if len(components) > 0 {
		payload["components"] = components
	}
	return g.doRequest(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), payload, nil)
}

// Reply answers an interaction, optionally visible to the actor only.
func (g *HTTPGateway) Reply(ctx context.Context, interaction *Interaction, content string, ephemeral bool) error {
	payload := map[string]any{"content": content, "ephemeral": ephemeral}
	return g.doRequest(ctx, http.MethodPost, fmt.Sprintf("/interactions/%s/callback", interaction.ID), payload, nil)
}

// ChannelHistory fetches up to limit recent messages, newest first.
func (g *HTTPGateway) ChannelHistory(ctx context.Context, channelID string, limit int) ([]Message, error) {
	var history []Message
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit)
	if err := g.doRequest(ctx, http.MethodGet, path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// HasRole reports whether the guild member holds roleID.
func (g *HTTPGateway) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	var member struct {
		Roles []string `json:"roles"`
	}
	path := fmt.Sprintf("/guilds/%s/members/%s", g.cfg.GuildID, userID)
	if err := g.doRequest(ctx, http.MethodGet, path, nil, &member); err != nil {
		return false, err
	}
	for _, role := range member.Roles {
		if role == roleID {
			return true, nil
		}
	}
	return false, nil
}

// GuildIconURL resolves the guild icon.
func (g *HTTPGateway) GuildIconURL(ctx context.Context) (string, error) {
	var guild struct {
		IconURL string `json:"icon_url"`
	}
	path := fmt.Sprintf("/guilds/%s", g.cfg.GuildID)
	if err := g.doRequest(ctx, http.MethodGet, path, nil, &guild); err != nil {
		return "", err
	}
	return guild.IconURL, nil
}

// AwaitNextMessage blocks until a channel message matching the predicate
// arrives, the timeout expires, or the context is cancelled.
func (g *HTTPGateway) AwaitNextMessage(ctx context.Context, channelID string, match func(Message) bool, timeout time.Duration) (*Message, error) {
	waiter := &messageWaiter{
		channelID: channelID,
		match:     match,
		delivery:  make(chan Message, 1),
	}
	g.waitMu.Lock()
	g.waiters[waiter] = struct{}{}
	g.waitMu.Unlock()

	defer func() {
		g.waitMu.Lock()
		delete(g.waiters, waiter)
		g.waitMu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-waiter.delivery:
		return &msg, nil
	case <-timer.C:
		return nil, util.NewTimedOut("timed out waiting for a message")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *HTTPGateway) handleInbound(c *fiber.Ctx) error {
	var event inboundEvent
	if err := c.BodyParser(&event); err != nil {
		return util.NewValidationError("invalid event payload", nil)
	}

	switch event.Type {
	case eventTypeCommand:
		if event.Interaction == nil {
			return util.NewValidationError("command event requires an interaction", nil)
		}
		g.mu.RLock()
		entry, exists := g.commands[event.Name]
		g.mu.RUnlock()
		if !exists {
			return util.NewNotFound("command", map[string]any{"name": event.Name})
		}
		g.metrics.RecordEvent(event.Type, event.Name)
		if err := entry.handler(c.UserContext(), event.Interaction); err != nil {
			g.metrics.RecordError(event.Type, event.Name, util.Code(err))
			return err
		}
	case eventTypeComponent:
		if event.Interaction == nil {
			return util.NewValidationError("component event requires an interaction", nil)
		}
		g.mu.RLock()
		handler, exists := g.components[event.CustomID]
		g.mu.RUnlock()
		if !exists {
			return util.NewNotFound("component", map[string]any{"custom_id": event.CustomID})
		}
		g.metrics.RecordEvent(event.Type, event.CustomID)
		if err := handler(c.UserContext(), event.Interaction); err != nil {
			g.metrics.RecordError(event.Type, event.CustomID, util.Code(err))
			return err
		}
	case eventTypeMessage:
		if event.Message == nil {
			return util.NewValidationError("message event requires a message", nil)
		}
		g.metrics.RecordEvent(event.Type, "")
		g.deliverMessage(*event.Message)
	default:
		return util.NewValidationError(fmt.Sprintf("unknown event type %q", event.Type), nil)
	}

	return c.SendStatus(http.StatusNoContent)
}

func (g *HTTPGateway) deliverMessage(msg Message) {
	g.waitMu.Lock()
	defer g.waitMu.Unlock()
	for waiter := range g.waiters {
		if waiter.channelID != msg.ChannelID {
			continue
		}
		if waiter.match != nil && !waiter.match(msg) {
			continue
		}
		select {
		case waiter.delivery <- msg:
		default:
		}
		delete(g.waiters, waiter)
	}
}

func (g *HTTPGateway) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			return util.NewUnauthorized("missing bearer token")
		}
		if _, err := g.tokens.Verify(token); err != nil {
			return util.NewUnauthorized("invalid webhook token")
		}
		return c.Next()
	}
}

func (g *HTTPGateway) errorHandlingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = util.NewInternalError(nil)
			}
			if err != nil {
				domainErr := util.ToDomainError(err)
				if domainErr.HTTPStatus >= 500 {
					g.logger.Error("event handling failed", zap.Error(domainErr))
				}
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

func (g *HTTPGateway) syncCommands(ctx context.Context) error {
	g.mu.RLock()
	definitions := make([]map[string]string, 0, len(g.commands))
	for name, entry := range g.commands {
		definitions = append(definitions, map[string]string{
			"name":        name,
			"description": entry.description,
		})
	}
	g.mu.RUnlock()

	if len(definitions) == 0 {
		return nil
	}
	path := fmt.Sprintf("/guilds/%s/commands", g.cfg.GuildID)
	return g.doRequest(ctx, http.MethodPut, path, definitions, nil)
}

func (g *HTTPGateway) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+g.cfg.BotToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
