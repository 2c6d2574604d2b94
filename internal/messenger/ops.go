package messenger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nfrund/messenger/internal/transport"
)

// call validates params and forwards them without waiting for a result.
// Results arrive later as events on the matching topic.
func (m *Messenger) call(ctx context.Context, method string, params any) error {
	if err := m.validate.StructCtx(ctx, params); err != nil {
		return fmt.Errorf("%s: invalid parameters: %w", method, err)
	}
	req := transport.Request{
		ID:     uuid.NewString(),
		Method: method,
		Params: params,
	}
	if err := m.transport.Send(ctx, req); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	m.logger.Debug("request sent", "method", method, "id", req.ID)
	return nil
}

// GetUser requests a user's profile. The result arrives on GetUser.
func (m *Messenger) GetUser(ctx context.Context, userID string) error {
	return m.call(ctx, MethodGetUser, &getUserParams{UserID: userID})
}

// GetUsers requests several profiles; one GetUser event arrives per user.
func (m *Messenger) GetUsers(ctx context.Context, userIDs []string) error {
	return m.call(ctx, MethodGetUsers, &usersParams{Users: userIDs})
}

// EditUser replaces the current user's custom data. Nil maps are sent as null.
func (m *Messenger) EditUser(ctx context.Context, customData, privateCustomData map[string]any) error {
	return m.call(ctx, MethodEditUser, &editUserParams{
		CustomData:        customData,
		PrivateCustomData: privateCustomData,
	})
}

// SetStatus publishes the current user's online status.
func (m *Messenger) SetStatus(ctx context.Context, online bool) error {
	return m.call(ctx, MethodSetStatus, &setStatusParams{Online: online})
}

// Subscribe starts receiving status and profile changes of users.
func (m *Messenger) Subscribe(ctx context.Context, users []string) error {
	return m.call(ctx, MethodSubscribe, &usersParams{Users: users})
}

// Unsubscribe stops receiving changes of users.
func (m *Messenger) Unsubscribe(ctx context.Context, users []string) error {
	return m.call(ctx, MethodUnsubscribe, &usersParams{Users: users})
}

// ManagePushNotifications selects which events are delivered as push
// notifications. A nil list is sent as null and disables them.
func (m *Messenger) ManagePushNotifications(ctx context.Context, notifications []string) error {
	return m.call(ctx, MethodManageNotifications, &manageNotificationsParams{Notifications: notifications})
}

// CreateConversation creates a conversation between participants.
func (m *Messenger) CreateConversation(ctx context.Context, participants []string, opts ...ConversationOption) error {
	o := applyConversationOptions(opts)
	publicJoin := false
	if o.publicJoin != nil {
		publicJoin = *o.publicJoin
	}
	return m.call(ctx, MethodCreateConversation, &createConversationParams{
		Participants: participants,
		Title:        o.title,
		Distinct:     o.distinct,
		PublicJoin:   publicJoin,
		CustomData:   o.customData,
		Moderators:   o.moderators,
		Uber:         o.uber,
	})
}

// GetConversation requests one conversation. An empty uuid is sent as null.
func (m *Messenger) GetConversation(ctx context.Context, conversationUUID string) error {
	return m.call(ctx, MethodGetConversation, &conversationParams{UUID: nullable(conversationUUID)})
}

// GetConversations requests several conversations. A nil list is sent as [].
func (m *Messenger) GetConversations(ctx context.Context, uuids []string) error {
	if uuids == nil {
		uuids = []string{}
	}
	return m.call(ctx, MethodGetConversations, &conversationsParams{Conversations: uuids})
}

// RemoveConversation removes a conversation. An empty uuid is sent as null.
func (m *Messenger) RemoveConversation(ctx context.Context, conversationUUID string) error {
	return m.call(ctx, MethodRemoveConversation, &conversationParams{UUID: nullable(conversationUUID)})
}

// EditConversation changes the title, public-join flag or custom data of a
// conversation. Attributes not passed are sent as null and left unchanged.
// Distinct, moderators and uber cannot be edited and are ignored.
func (m *Messenger) EditConversation(ctx context.Context, conversationUUID string, opts ...ConversationOption) error {
	o := applyConversationOptions(opts)
	return m.call(ctx, MethodEditConversation, &editConversationParams{
		UUID:       conversationUUID,
		Title:      o.title,
		PublicJoin: o.publicJoin,
		CustomData: o.customData,
	})
}

// SendMessage posts a message to a conversation.
func (m *Messenger) SendMessage(ctx context.Context, conversation, text string, payload []map[string]any) error {
	return m.call(ctx, MethodSendMessage, &sendMessageParams{
		Conversation: conversation,
		Text:         text,
		Payload:      payload,
	})
}

// EditMessage replaces the text and payload of a sent message.
func (m *Messenger) EditMessage(ctx context.Context, conversation, messageUUID, text string, payload []map[string]any) error {
	return m.call(ctx, MethodEditMessage, &editMessageParams{
		Conversation: conversation,
		UUID:         messageUUID,
		Text:         text,
		Payload:      payload,
	})
}

// Typing notifies the conversation's participants that the user is typing.
func (m *Messenger) Typing(ctx context.Context, conversation string) error {
	return m.call(ctx, MethodTyping, &typingParams{Conversation: conversation})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
