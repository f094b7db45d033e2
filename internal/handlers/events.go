package handlers

import (
	"errors"
	"log/slog"

	"github.com/mossy-p/ptt-signaling/internal/codec"
	"github.com/mossy-p/ptt-signaling/internal/models"
	"github.com/mossy-p/ptt-signaling/internal/negotiation"
)

var (
	errRoleRequired   = errors.New("role is required")
	errTargetRequired = errors.New("signal target is required")
)

func (r *Relay) dispatch(c *Client, frame *codec.Frame) {
	var err error
	switch frame.Event {
	case models.EventRegister:
		err = r.handleRegister(c, frame)
	case models.EventSignal:
		err = r.handleSignal(c, frame)
	case models.EventPTTAudio:
		err = r.handlePTTAudio(c, frame)
	case models.EventPTTStatus:
		err = r.handlePTTStatus(c, frame)
	case models.EventMessage:
		err = r.handleMessage(c, frame)
	default:
		slog.Debug("unknown event", "peer", c.ID, "event", frame.Event)
		return
	}
	if err != nil {
		slog.Warn("event rejected", "peer", c.ID, "event", frame.Event, "error", err)
	}
}

func (r *Relay) reject(c *Client, err error) error {
	r.hub.SendTo(c.ID, models.EventError, models.ErrorEvent{Error: err.Error()})
	return err
}

func (r *Relay) handleRegister(c *Client, frame *codec.Frame) error {
	var req models.RegisterRequest
	if err := frame.Bind(&req); err != nil {
		return err
	}
	if req.Role == "" {
		return r.reject(c, errRoleRequired)
	}

	var extra map[string]any
	if err := frame.Bind(&extra); err == nil {
		delete(extra, "role")
		delete(extra, "name")
		if len(extra) == 0 {
			extra = nil
		}
	}

	user := &models.User{
		SocketID:    c.ID,
		Role:        req.Role,
		Name:        req.Name,
		Extra:       extra,
		ConnectedAt: r.now().UTC(),
	}

	if previous := r.registry.Register(user); previous != nil {
		r.forget(previous)
		if previous.Role != user.Role {
			r.leaveRole(c, previous)
		}
	}
	r.track(user)

	if group, ok := user.Role.Group(); ok {
		r.hub.Join(c, group)
		slog.Info("user joined", "peer", c.ID, "role", user.Role, "name", user.Name)

		if user.Role == models.RoleSecurity {
			r.hub.BroadcastGroup(group, models.EventSecurityUpdate, models.SecurityUpdate{
				Type:  models.UpdateUserJoined,
				User:  user.Name,
				Count: r.registry.Count(models.RoleSecurity),
			}, c.ID)
		}
	} else {
		slog.Info("user registered without a channel", "peer", c.ID, "role", user.Role, "name", user.Name)
	}

	r.hub.SendTo(c.ID, models.EventRegistered, models.RegisteredEvent{
		Success:  true,
		Role:     user.Role,
		Channels: user.Role.Channels(),
	})
	return nil
}

func (r *Relay) handleSignal(c *Client, frame *codec.Frame) error {
	var req models.SignalRequest
	if err := frame.Bind(&req); err != nil {
		return err
	}
	if !req.Type.Valid() {
		slog.Debug("ignoring signal", "peer", c.ID, "type", req.Type)
		return nil
	}
	if req.To == "" {
		return r.reject(c, errTargetRequired)
	}

	if r.strictSignals {
		summary, err := negotiation.Validate(req.Type, req.Signal)
		if err != nil {
			return r.reject(c, err)
		}
		slog.Debug("signal validated", "peer", c.ID, "type", summary.Type, "media", summary.Media, "candidate", summary.Candidate)
	}

	slog.Info("relaying signal", "type", req.Type, "from", c.ID, "to", req.To)
	if !r.hub.SendTo(req.To, models.EventSignal, models.SignalEvent{
		From:   c.ID,
		Signal: req.Signal,
		Type:   req.Type,
	}) {
		slog.Info("signal not delivered", "from", c.ID, "to", req.To)
	}
	return nil
}

func (r *Relay) handlePTTAudio(c *Client, frame *codec.Frame) error {
	var req models.PTTAudioRequest
	if err := frame.Bind(&req); err != nil {
		return err
	}
	group, ok := models.ChannelGroup(req.Channel)
	if !ok {
		slog.Debug("ignoring ptt audio for unknown channel", "peer", c.ID, "channel", req.Channel)
		return nil
	}

	slog.Debug("ptt audio", "peer", c.ID, "user", req.UserName, "channel", req.Channel)
	r.hub.BroadcastGroup(group, models.EventPTTAudio, models.PTTAudioEvent{
		AudioData: req.AudioData,
		From:      senderID(c, req.UserID),
		UserName:  req.UserName,
		Timestamp: r.timestamp(),
	}, c.ID)
	return nil
}

func (r *Relay) handlePTTStatus(c *Client, frame *codec.Frame) error {
	var req models.PTTStatusRequest
	if err := frame.Bind(&req); err != nil {
		return err
	}
	group, ok := models.ChannelGroup(req.Channel)
	if !ok {
		slog.Debug("ignoring ptt status for unknown channel", "peer", c.ID, "channel", req.Channel)
		return nil
	}

	r.hub.BroadcastGroup(group, models.EventPTTStatus, models.PTTStatusEvent{
		Status:   req.Status,
		From:     senderID(c, req.UserID),
		UserName: req.UserName,
	}, c.ID)
	return nil
}

func (r *Relay) handleMessage(c *Client, frame *codec.Frame) error {
	var req models.ChatRequest
	if err := frame.Bind(&req); err != nil {
		return err
	}
	group, ok := models.ChannelGroup(req.Channel)
	if !ok {
		slog.Debug("ignoring message for unknown channel", "peer", c.ID, "channel", req.Channel)
		return nil
	}

	// Chat echoes back to the sender when it is a member of the group.
	r.hub.BroadcastGroup(group, models.EventMessage, models.ChatEvent{
		UserName:  req.UserName,
		Message:   req.Message,
		Timestamp: r.timestamp(),
	}, "")
	return nil
}

func (r *Relay) disconnect(c *Client) {
	r.hub.Detach(c)
	slog.Info("peer disconnected", "peer", c.ID)

	user, ok := r.registry.Unregister(c.ID)
	if !ok {
		return
	}
	r.forget(user)

	if user.Role == models.RoleSecurity {
		r.hub.BroadcastGroup(models.GroupSecurity, models.EventSecurityUpdate, models.SecurityUpdate{
			Type:  models.UpdateUserLeft,
			User:  user.Name,
			Count: r.registry.Count(models.RoleSecurity),
		}, "")
	}
}

// leaveRole takes c out of the group of a registration it replaced. Guards
// hear about a security user switching away like they hear about a departure.
func (r *Relay) leaveRole(c *Client, previous *models.User) {
	group, ok := previous.Role.Group()
	if !ok {
		return
	}
	r.hub.Leave(c, group)

	if previous.Role == models.RoleSecurity {
		r.hub.BroadcastGroup(group, models.EventSecurityUpdate, models.SecurityUpdate{
			Type:  models.UpdateUserLeft,
			User:  previous.Name,
			Count: r.registry.Count(models.RoleSecurity),
		}, c.ID)
	}
}

// senderID prefers the user id the client reports and falls back to the
// connection id.
func senderID(c *Client, userID string) string {
	if userID != "" {
		return userID
	}
	return c.ID
}
