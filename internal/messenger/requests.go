package messenger

// Native method names.
const (
	MethodGetUser             = "getUser"
	MethodGetUsers            = "getUsers"
	MethodEditUser            = "editUser"
	MethodSetStatus           = "setStatus"
	MethodSubscribe           = "subscribe"
	MethodUnsubscribe         = "unsubscribe"
	MethodManageNotifications = "manageNotifications"
	MethodCreateConversation  = "createConversation"
	MethodGetConversation     = "getConversation"
	MethodGetConversations    = "getConversations"
	MethodRemoveConversation  = "removeConversation"
	MethodEditConversation    = "editConversation"
	MethodSendMessage         = "sendMessage"
	MethodEditMessage         = "editMessage"
	MethodTyping              = "typing"
)

// Request parameter shapes. Pointer, map and slice fields without omitempty
// encode as null when unset, which the native side reads as "not provided".

type getUserParams struct {
	UserID string `json:"userId" validate:"required"`
}

type usersParams struct {
	Users []string `json:"users" validate:"required,min=1,dive,required"`
}

type editUserParams struct {
	CustomData        map[string]any `json:"customData"`
	PrivateCustomData map[string]any `json:"privateCustomData"`
}

type setStatusParams struct {
	Online bool `json:"online"`
}

type manageNotificationsParams struct {
	Notifications []string `json:"notifications" validate:"dive,required"`
}

type createConversationParams struct {
	Participants []string       `json:"participants" validate:"dive,required"`
	Title        *string        `json:"title"`
	Distinct     bool           `json:"distinct"`
	PublicJoin   bool           `json:"publicJoin"`
	CustomData   map[string]any `json:"customData"`
	Moderators   []string       `json:"moderators" validate:"dive,required"`
	Uber         bool           `json:"isUber"`
}

type conversationParams struct {
	UUID *string `json:"uuid"`
}

type conversationsParams struct {
	Conversations []string `json:"conversations" validate:"dive,required"`
}

type editConversationParams struct {
	UUID       string         `json:"uuid" validate:"required"`
	Title      *string        `json:"title"`
	PublicJoin *bool          `json:"publicJoin"`
	CustomData map[string]any `json:"customData"`
}

type sendMessageParams struct {
	Conversation string           `json:"conversation" validate:"required"`
	Text         string           `json:"text"`
	Payload      []map[string]any `json:"payload"`
}

type editMessageParams struct {
	Conversation string           `json:"conversation" validate:"required"`
	UUID         string           `json:"uuid" validate:"required"`
	Text         string           `json:"text"`
	Payload      []map[string]any `json:"payload"`
}

type typingParams struct {
	Conversation string `json:"conversation" validate:"required"`
}

// ConversationOption sets an optional conversation attribute. Attributes
// that are never set are sent with their defaults: null title, custom data
// and moderators, false for the flags.
type ConversationOption func(*conversationOptions)

type conversationOptions struct {
	title      *string
	distinct   bool
	publicJoin *bool
	customData map[string]any
	moderators []string
	uber       bool
}

// WithTitle sets the conversation title.
func WithTitle(title string) ConversationOption {
	return func(o *conversationOptions) { o.title = &title }
}

// WithDistinct makes the conversation unique for its participant set.
func WithDistinct(distinct bool) ConversationOption {
	return func(o *conversationOptions) { o.distinct = distinct }
}

// WithPublicJoin allows users to join without an invitation.
func WithPublicJoin(public bool) ConversationOption {
	return func(o *conversationOptions) { o.publicJoin = &public }
}

// WithCustomData attaches custom data.
func WithCustomData(data map[string]any) ConversationOption {
	return func(o *conversationOptions) { o.customData = data }
}

// WithModerators sets the moderator list.
func WithModerators(users ...string) ConversationOption {
	return func(o *conversationOptions) { o.moderators = users }
}

// WithUber marks the conversation as an uber conversation.
func WithUber(uber bool) ConversationOption {
	return func(o *conversationOptions) { o.uber = uber }
}

func applyConversationOptions(opts []ConversationOption) conversationOptions {
	var o conversationOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Methods returns every native method the messenger calls.
func Methods() []string {
	return []string{
		MethodGetUser, MethodGetUsers, MethodEditUser, MethodSetStatus,
		MethodSubscribe, MethodUnsubscribe, MethodManageNotifications,
		MethodCreateConversation, MethodGetConversation, MethodGetConversations,
		MethodRemoveConversation, MethodEditConversation,
		MethodSendMessage, MethodEditMessage, MethodTyping,
	}
}
