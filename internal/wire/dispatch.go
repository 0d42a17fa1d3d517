package wire

import (
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"cubesnake.io/internal/protocol"
	"cubesnake.io/internal/room"
)

var errHandshakeFailed = errors.New("wire: join handshake failed")

// handshake enforces spec §4.4's join window: the first message on a
// freshly upgraded connection must be a well-formed join within
// joinTimeout, or the socket is closed with the matching error code.
func handshake(manager *room.RoomManager, c *conn) (*room.Room, *room.PlayerConn, error) {
	c.ws.SetReadLimit(maxFrameBytes)
	c.ws.SetReadDeadline(time.Now().Add(joinTimeout))
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			sendError(c, protocol.ErrJoinTimeout, "no join received in time")
		}
		return nil, nil, errHandshakeFailed
	}

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.V != protocol.EnvelopeVersion || env.Type != protocol.TypeJoin {
		sendError(c, protocol.ErrBadJoin, "first message must be a v1 join")
		return nil, nil, errHandshakeFailed
	}

	var payload protocol.JoinPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		sendError(c, protocol.ErrBadJoin, "malformed join payload")
		return nil, nil, errHandshakeFailed
	}

	name := payload.Name
	if name == "" {
		name = "Player"
	}
	if len(name) > 20 {
		name = name[:20]
	}

	r, p, err := manager.Join(payload.RoomID, name, c)
	if err != nil {
		sendError(c, joinErrorCode(err), err.Error())
		return nil, nil, errHandshakeFailed
	}

	joined, jerr := protocol.NewEnvelope(protocol.TypeJoined, protocol.JoinedPayload{
		PlayerID: p.PlayerID,
		RoomID:   r.ID,
		IsHost:   r.HostID == p.PlayerID,
		Lobby:    r.LobbyState(),
	})
	if jerr == nil {
		c.Send(joined)
	}
	r.Broadcast(lobbyStateEnvelope(r))

	return r, p, nil
}

func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomFull):
		return protocol.ErrRoomFull
	case errors.Is(err, room.ErrRoomInProgress):
		return protocol.ErrRoomInProgress
	case errors.Is(err, room.ErrBadJoin):
		return protocol.ErrBadJoin
	default:
		return protocol.ErrServerError
	}
}

func sendError(c *conn, code, message string) {
	env, err := protocol.NewEnvelope(protocol.TypeError, protocol.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	c.Send(env)
}

func lobbyStateEnvelope(r *room.Room) protocol.Envelope {
	env, _ := protocol.NewEnvelope(protocol.TypeLobbyState, protocol.LobbyStatePayload{Lobby: r.LobbyState()})
	return env
}

// dispatch runs the post-join message loop: every envelope is decoded
// and routed to the matching Room method until the socket errors or the
// client sends leave. On exit it always evicts the player and
// re-broadcasts lobby state, so a dropped connection looks the same to
// the rest of the room as an explicit leave.
func dispatch(r *room.Room, p *room.PlayerConn, c *conn, log *logrus.Entry) {
	defer func() {
		r.Leave(p.PlayerID)
		r.Broadcast(lobbyStateEnvelope(r))
	}()

	for {
		env, err := c.readEnvelope()
		if err != nil {
			return
		}
		if handleMessage(r, p, c, env, log) == stopLoop {
			return
		}
	}
}

type loopSignal int

const (
	continueLoop loopSignal = iota
	stopLoop
)

func handleMessage(r *room.Room, p *room.PlayerConn, c *conn, env protocol.Envelope, log *logrus.Entry) loopSignal {
	if env.V != protocol.EnvelopeVersion {
		log.WithField("v", env.V).Debug("dropping envelope with unsupported version")
		return continueLoop
	}

	switch env.Type {
	case protocol.TypeLeave:
		return stopLoop

	case protocol.TypePing:
		var ping protocol.PingPayload
		if err := json.Unmarshal(env.Payload, &ping); err != nil {
			return continueLoop
		}
		pong, err := protocol.NewEnvelope(protocol.TypePong, protocol.PongPayload{
			ClientTimeMs: ping.ClientTimeMs,
			ServerTimeMs: nowMs(),
		})
		if err == nil {
			c.Send(pong)
		}

	case protocol.TypeSetSettings:
		var s protocol.SetSettingsPayload
		if err := json.Unmarshal(env.Payload, &s); err != nil {
			return continueLoop
		}
		if r.SetSettings(p.PlayerID, s.CubeN, s.RoundSeconds, s.TickRate) {
			r.Broadcast(lobbyStateEnvelope(r))
		}

	case protocol.TypeReady:
		var rd protocol.ReadyPayload
		if err := json.Unmarshal(env.Payload, &rd); err != nil {
			return continueLoop
		}
		r.SetReady(p.PlayerID, rd.Ready)
		r.Broadcast(lobbyStateEnvelope(r))

	case protocol.TypeInput:
		var in protocol.InputPayload
		if err := json.Unmarshal(env.Payload, &in); err != nil {
			return continueLoop
		}
		r.SubmitInputs(p.PlayerID, in.Inputs)

	default:
		log.WithField("type", env.Type).Debug("unrecognized message type")
	}
	return continueLoop
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
