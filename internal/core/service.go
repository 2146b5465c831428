package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/proto"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/store"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/token"
)

// Service implements the gateway's action handlers on top of the
// account, room and history stores and the token issuer.
type Service struct {
	accounts store.AccountStore
	rooms    store.RoomStore
	history  store.HistoryStore
	issuer   *token.Issuer
	log      *zerolog.Logger
}

// NewService constructs the handler service.
func NewService(st store.Store, issuer *token.Issuer, logger *zerolog.Logger) *Service {
	return &Service{
		accounts: st,
		rooms:    st,
		history:  st,
		issuer:   issuer,
		log:      logger,
	}
}

// Router builds the immutable action routing table.
func (s *Service) Router() Router {
	return Router{
		proto.ActionAuthenticate: s.Authenticate,
		proto.ActionMessage:      s.Message,
		proto.ActionTopic:        s.Topic,
		proto.ActionRegistryRoom: s.RegistryRoom,
		proto.ActionRoom:         s.Room,
	}
}

// Authenticate verifies credentials with the account store. On success
// the response is the account record plus a freshly issued session
// token and its expiry. The store's failure is forwarded to the caller
// as the response payload, header attached either way.
func (s *Service) Authenticate(ctx context.Context, sender Sender, env *proto.Envelope) {
	var req proto.AuthenticateRequest
	if err := env.Decode(&req); err != nil {
		s.log.Warn().Err(err).Msg("decode authenticate request")
		return
	}

	account, err := s.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		s.send(ctx, sender, proto.AuthenticateFailure{
			Header: env.Header,
			Error:  err.Error(),
		})
		return
	}

	tok, err := s.issuer.Issue(account.Username)
	if err != nil {
		s.log.Error().Err(err).Str("username", account.Username).Msg("issue token")
		return
	}

	s.send(ctx, sender, proto.AuthenticateResponse{
		Header:   env.Header,
		Username: account.Username,
		Token:    tok.Key,
		Expiry:   tok.Expiry,
	})
}

// Message appends a chat message to its room's history. Fire-and-forget:
// no response is sent, even on failure.
func (s *Service) Message(ctx context.Context, _ Sender, env *proto.Envelope) {
	var req proto.MessageRequest
	if err := env.Decode(&req); err != nil {
		s.log.Warn().Err(err).Msg("decode message request")
		return
	}

	msg := &store.ChatMessage{
		Sender:  req.Sender,
		Content: req.Content,
		Room:    req.Room,
		Command: req.Command,
	}
	if err := s.history.Append(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("room", req.Room).Msg("append message")
	}
}

// Topic updates a room's topic. No response is sent.
func (s *Service) Topic(ctx context.Context, _ Sender, env *proto.Envelope) {
	var req proto.TopicRequest
	if err := env.Decode(&req); err != nil {
		s.log.Warn().Err(err).Msg("decode topic request")
		return
	}

	if err := s.rooms.SetTopic(ctx, req.Room, req.Topic); err != nil {
		s.log.Error().Err(err).Str("room", req.Room).Msg("set topic")
	}
}

// RegistryRoom tears down a depleted room: metadata and history are
// removed irrecoverably. Any status other than DEPLETED is a no-op.
func (s *Service) RegistryRoom(ctx context.Context, _ Sender, env *proto.Envelope) {
	var req proto.RegistryRequest
	if err := env.Decode(&req); err != nil {
		s.log.Warn().Err(err).Msg("decode registry request")
		return
	}

	if req.Status != proto.StatusDepleted {
		return
	}

	if err := s.rooms.Delete(ctx, req.Room); err != nil {
		s.log.Error().Err(err).Str("room", req.Room).Msg("delete room")
	}
	if err := s.history.Clear(ctx, req.Room); err != nil {
		s.log.Error().Err(err).Str("room", req.Room).Msg("clear history")
	}
}

// Room loads a room by name, creating it with the requester as owner
// when absent. A created room is returned without history; an existing
// room is returned with its full ordered history attached.
func (s *Service) Room(ctx context.Context, sender Sender, env *proto.Envelope) {
	var req proto.RoomRequest
	if err := env.Decode(&req); err != nil {
		s.log.Warn().Err(err).Msg("decode room request")
		return
	}

	if req.Topic == "" {
		req.Topic = proto.DefaultTopic
	}

	room, created, err := s.rooms.LoadOrCreate(ctx, req.Room, req.Username, req.Topic)
	if err != nil {
		s.log.Error().Err(err).Str("room", req.Room).Msg("load or create room")
		return
	}

	if created {
		s.send(ctx, sender, proto.RoomCreatedResponse{
			Header:  env.Header,
			Room:    room.Name,
			Topic:   room.Topic,
			Owner:   room.Owner,
			Created: true,
		})
		return
	}

	history, err := s.history.List(ctx, room.Name)
	if err != nil {
		s.log.Error().Err(err).Str("room", room.Name).Msg("list history")
		return
	}

	s.send(ctx, sender, proto.RoomLoadedResponse{
		Header:  env.Header,
		Room:    room.Name,
		Topic:   room.Topic,
		Owner:   room.Owner,
		History: historyToProto(history),
	})
}

func (s *Service) send(ctx context.Context, sender Sender, payload any) {
	if err := sender.Send(ctx, payload); err != nil {
		s.log.Warn().Err(err).Msg("send response")
	}
}

func historyToProto(history []store.ChatMessage) []proto.ChatMessage {
	messages := make([]proto.ChatMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, proto.ChatMessage{
			Sender:  msg.Sender,
			Content: msg.Content,
			Room:    msg.Room,
			Command: msg.Command,
		})
	}
	return messages
}
