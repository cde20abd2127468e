package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
	"github.com/tanaka-0224/Iverse2/internal/realtime"
	"github.com/tanaka-0224/Iverse2/internal/response"
)

type ChatState string

const (
	ChatStateIdle     ChatState = "idle"
	ChatStateSelected ChatState = "selected"
	ChatStateLoading  ChatState = "loading"
	ChatStateLoaded   ChatState = "loaded"
)

// ChatSink receives outbound frames. It is called with the session lock held
// and must not block or call back into the session.
type ChatSink func(*dto.WSOutbound)

// ChatSession is one client's view of a board chat. Every board switch bumps
// the generation; events and fetch results from an older generation are dropped.
type ChatSession struct {
	messages MessageService
	identity domain.Identity
	sink     ChatSink
	logger   *zap.Logger

	mu         sync.Mutex
	state      ChatState
	boardID    uuid.UUID
	generation uint64
	list       []*dto.MessageResponse
	seen       map[string]struct{}
	sub        realtime.Subscription
	wg         sync.WaitGroup
}

// NewChatSession creates an idle session for identity
func NewChatSession(messages MessageService, identity domain.Identity, sink ChatSink, logger *zap.Logger) *ChatSession {
	return &ChatSession{
		messages: messages,
		identity: identity,
		sink:     sink,
		logger:   logger,
		state:    ChatStateIdle,
		seen:     make(map[string]struct{}),
	}
}

// State returns the current state and board
func (s *ChatSession) State() (ChatState, uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.boardID
}

// Messages returns a copy of the current message list
func (s *ChatSession) Messages() []*dto.MessageResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*dto.MessageResponse, len(s.list))
	copy(out, s.list)
	return out
}

// SelectBoard switches the session to rawBoardID: the list is cleared and the
// previous subscription closed before the new board is subscribed and fetched.
func (s *ChatSession) SelectBoard(ctx context.Context, rawBoardID string) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.resetLocked()
	s.state = ChatStateSelected
	s.emitLocked(&dto.WSOutbound{Type: dto.WSTypeReset, BoardID: rawBoardID})
	s.mu.Unlock()

	boardID, err := s.messages.CheckAccess(ctx, s.identity, rawBoardID)
	if err != nil {
		s.fail(gen, err)
		return err
	}

	// subscribe before fetching so inserts made during the fetch are not lost
	sub, err := s.messages.Subscribe(ctx, boardID)
	if err != nil {
		s.fail(gen, err)
		return err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	s.boardID = boardID
	s.sub = sub
	s.state = ChatStateLoading
	s.wg.Add(1)
	go s.forward(gen, boardID, sub)
	s.mu.Unlock()

	fetched, err := s.messages.FetchMessages(ctx, s.identity, rawBoardID)
	if err != nil {
		s.fail(gen, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}

	// keep realtime inserts that arrived during the fetch
	buffered := s.list
	s.list = make([]*dto.MessageResponse, 0, len(fetched)+len(buffered))
	s.seen = make(map[string]struct{}, len(fetched)+len(buffered))
	for _, m := range fetched {
		s.appendLocked(m)
	}
	for _, m := range buffered {
		s.appendLocked(m)
	}
	sort.SliceStable(s.list, func(i, j int) bool {
		return s.list[i].CreatedAt.Before(s.list[j].CreatedAt)
	})

	s.state = ChatStateLoaded
	out := make([]*dto.MessageResponse, len(s.list))
	copy(out, s.list)
	s.emitLocked(&dto.WSOutbound{Type: dto.WSTypeMessages, BoardID: boardID.String(), Messages: out})
	return nil
}

// Send posts content to the selected board and appends it optimistically
func (s *ChatSession) Send(ctx context.Context, content string) (*dto.MessageResponse, error) {
	s.mu.Lock()
	gen, boardID, state := s.generation, s.boardID, s.state
	s.mu.Unlock()

	if state == ChatStateIdle || boardID == uuid.Nil {
		err := response.NewAppError(response.ErrCodeValidation, "ボードを選択してください", "")
		s.sendError(err)
		return nil, err
	}

	msg, err := s.messages.SendMessage(ctx, s.identity, boardID.String(), content)
	if err != nil {
		s.sendError(err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation && s.appendLocked(msg) && s.state == ChatStateLoaded {
		s.emitLocked(&dto.WSOutbound{Type: dto.WSTypeMessage, BoardID: msg.BoardID, Message: msg})
	}
	return msg, nil
}

// Close leaves the current board. The session can be reused by SelectBoard.
func (s *ChatSession) Close() {
	s.mu.Lock()
	s.generation++
	s.resetLocked()
	s.state = ChatStateIdle
	s.boardID = uuid.Nil
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *ChatSession) forward(gen uint64, boardID uuid.UUID, sub realtime.Subscription) {
	defer s.wg.Done()
	for payload := range sub.Events() {
		msg, err := decodeMessageEvent(payload)
		if err != nil {
			s.logger.Debug("Dropping undecodable realtime event", zap.Error(err))
			continue
		}
		s.receive(gen, boardID, msg)
	}
}

func (s *ChatSession) receive(gen uint64, boardID uuid.UUID, msg *dto.MessageResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || msg.BoardID != boardID.String() {
		return
	}
	if !s.appendLocked(msg) {
		return
	}
	if s.state == ChatStateLoaded {
		s.emitLocked(&dto.WSOutbound{Type: dto.WSTypeMessage, BoardID: msg.BoardID, Message: msg})
	}
}

// appendLocked adds msg unless its id was already seen
func (s *ChatSession) appendLocked(msg *dto.MessageResponse) bool {
	if _, dup := s.seen[msg.ID]; dup {
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.list = append(s.list, msg)
	return true
}

func (s *ChatSession) resetLocked() {
	s.list = nil
	s.seen = make(map[string]struct{})
	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			s.logger.Debug("Failed to close chat subscription", zap.Error(err))
		}
		s.sub = nil
	}
}

func (s *ChatSession) fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.resetLocked()
	s.state = ChatStateIdle
	s.boardID = uuid.Nil
	s.emitLocked(errorFrame(err))
}

func (s *ChatSession) sendError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(errorFrame(err))
}

func (s *ChatSession) emitLocked(frame *dto.WSOutbound) {
	if s.sink != nil {
		s.sink(frame)
	}
}

func errorFrame(err error) *dto.WSOutbound {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return &dto.WSOutbound{Type: dto.WSTypeError, Code: appErr.Code, Message: appErr.Message}
	}
	return &dto.WSOutbound{Type: dto.WSTypeError, Code: response.ErrCodeInternal, Message: "Internal server error"}
}

func decodeMessageEvent(payload []byte) (*dto.MessageResponse, error) {
	ev, err := realtime.DecodeEvent(payload)
	if err != nil {
		return nil, err
	}
	if ev.Event != "INSERT" || ev.Table != "message" {
		return nil, errors.New("not a message insert")
	}
	var msg dto.MessageResponse
	if err := json.Unmarshal(ev.Record, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("message event without id")
	}
	return &msg, nil
}
