package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/metrics"
	"github.com/tanaka-0224/Iverse2/internal/response"
	"github.com/tanaka-0224/Iverse2/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsClient is one chat connection. Every frame goes through send so that
// only writePump writes to conn.
type wsClient struct {
	conn     *websocket.Conn
	send     chan []byte
	identity domain.Identity
	dropped  atomic.Int64
	logger   *zap.Logger
}

// push never blocks; frames are dropped when the client cannot keep up
func (cl *wsClient) push(frame *dto.WSOutbound) {
	data, err := json.Marshal(frame)
	if err != nil {
		cl.logger.Error("Failed to marshal chat frame", zap.String("type", frame.Type), zap.Error(err))
		return
	}
	select {
	case cl.send <- data:
	default:
		if cl.dropped.Add(1) == 1 {
			cl.logger.Warn("Chat client send buffer full, dropping frames", zap.String("user_id", cl.identity.ID))
		}
	}
}

type WSHandler struct {
	messageService service.MessageService
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

func NewWSHandler(messageService service.MessageService, m *metrics.Metrics, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		messageService: messageService,
		metrics:        m,
		logger:         logger,
	}
}

// HandleChat godoc
// @Summary      チャットWebSocket
// @Description  select_board でボードを選択し、send で送信します。サーバーは reset / messages / message / error を送ります
// @Tags         websocket
// @Param        token query string true "セッショントークン"
// @Success      101 {string} string "Switching Protocols"
// @Failure      401 {object} response.ErrorResponse
// @Router       /ws/chat [get]
func (h *WSHandler) HandleChat(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		identity: identity,
		logger:   h.logger,
	}

	h.metrics.IncWebSocketConnections()
	h.logger.Info("Chat WebSocket connected", zap.String("user_id", identity.ID))

	// the request context ends when this handler returns
	ctx, cancel := context.WithCancel(context.Background())
	chat := service.NewChatSession(h.messageService, identity, client.push, h.logger)

	go h.writePump(client)
	h.readPump(ctx, client, chat)

	cancel()
	chat.Close()
	close(client.send)
	h.metrics.DecWebSocketConnections()
	h.logger.Info("Chat WebSocket disconnected",
		zap.String("user_id", identity.ID),
		zap.Int64("dropped_frames", client.dropped.Load()),
	)
}

func (h *WSHandler) readPump(ctx context.Context, client *wsClient, chat *service.ChatSession) {
	defer client.conn.Close()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var frame dto.WSInbound
		if err := json.Unmarshal(data, &frame); err != nil {
			client.push(&dto.WSOutbound{Type: dto.WSTypeError, Code: response.ErrCodeValidation, Message: "Invalid frame"})
			continue
		}
		h.handleFrame(ctx, client, chat, &frame)
	}
}

// handleFrame runs one client command. Failures reach the client as error
// frames emitted by the session.
func (h *WSHandler) handleFrame(ctx context.Context, client *wsClient, chat *service.ChatSession, frame *dto.WSInbound) {
	var err error
	switch frame.Type {
	case dto.WSTypeSelectBoard:
		err = chat.SelectBoard(ctx, frame.BoardID)
	case dto.WSTypeSend:
		_, err = chat.Send(ctx, frame.Content)
	default:
		client.push(&dto.WSOutbound{Type: dto.WSTypeError, Code: response.ErrCodeValidation, Message: "Unknown frame type: " + frame.Type})
		return
	}
	if err != nil {
		h.logger.Debug("Chat command failed",
			zap.String("type", frame.Type),
			zap.String("user_id", client.identity.ID),
			zap.Error(err),
		)
	}
}

func (h *WSHandler) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
