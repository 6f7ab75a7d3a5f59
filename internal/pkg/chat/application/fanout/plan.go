package fanout

// Event names delivered to clients.
type Event string

const (
	EventConversationNew     Event = "conversation.new"
	EventConversationUpdated Event = "conversation.updated"
	EventConversationRemoved Event = "conversation.removed"
	EventConversationPins    Event = "conversation.pins"
	EventMessageNew          Event = "message.new"
)

// Audience selects between the two broadcast primitives.
type Audience string

const (
	AudienceUser Audience = "user"
	AudienceRoom Audience = "room"
)

// PayloadKind tells the notifier how to build the body of an intent.
type PayloadKind int

const (
	// PayloadSnapshot is the full conversation view as seen by the recipient.
	PayloadSnapshot PayloadKind = iota
	// PayloadRemoval is {conversation_id}.
	PayloadRemoval
	// PayloadData is the mutation's own narrow payload.
	PayloadData
)

// MutationKind enumerates the committed changes that produce events.
type MutationKind string

const (
	MutationCreated            MutationKind = "created"
	MutationParticipantAdded   MutationKind = "participant_added"
	MutationParticipantRemoved MutationKind = "participant_removed"
	MutationRenamed            MutationKind = "renamed"
	MutationLeft               MutationKind = "left"
	MutationDeleted            MutationKind = "deleted"
	MutationReadState          MutationKind = "read_state"
	MutationPinsChanged        MutationKind = "pins_changed"
	MutationMessageSent        MutationKind = "message_sent"
)

// Mutation is the committed outcome a use case hands to the fan-out.
type Mutation struct {
	Kind           MutationKind
	ConversationID string
	Actor          string
	// Subject is the user added, removed or leaving.
	Subject string
	// Members is the roster after the mutation.
	Members []string
	// Former is the roster before a deletion.
	Former []string
	// Data is the narrow payload for room events and read-state updates.
	Data any
}

// Intent is one (recipient, event, payload kind) triple before payloads exist.
type Intent struct {
	Audience  Audience
	Recipient string
	Event     Event
	Payload   PayloadKind
	JoinRoom  bool
	LeaveRoom bool
}

func toUser(userID string, ev Event, kind PayloadKind) Intent {
	return Intent{Audience: AudienceUser, Recipient: userID, Event: ev, Payload: kind}
}

func toRoom(roomID string, ev Event) Intent {
	return Intent{Audience: AudienceRoom, Recipient: roomID, Event: ev, Payload: PayloadData}
}

// Plan maps a committed mutation to the deliveries it owes.
// Users who are no longer members only ever get a removal notice.
func Plan(m Mutation) []Intent {
	var out []Intent
	switch m.Kind {
	case MutationCreated:
		for _, id := range m.Members {
			in := toUser(id, EventConversationNew, PayloadSnapshot)
			in.JoinRoom = true
			out = append(out, in)
		}

	case MutationParticipantAdded:
		for _, id := range m.Members {
			if id == m.Subject {
				continue
			}
			out = append(out, toUser(id, EventConversationUpdated, PayloadSnapshot))
		}
		if m.Subject != "" {
			in := toUser(m.Subject, EventConversationNew, PayloadSnapshot)
			in.JoinRoom = true
			out = append(out, in)
		}

	case MutationParticipantRemoved, MutationLeft:
		for _, id := range m.Members {
			if id == m.Subject {
				continue
			}
			out = append(out, toUser(id, EventConversationUpdated, PayloadSnapshot))
		}
		if m.Subject != "" {
			in := toUser(m.Subject, EventConversationRemoved, PayloadRemoval)
			in.LeaveRoom = true
			out = append(out, in)
		}

	case MutationDeleted:
		for _, id := range m.Former {
			in := toUser(id, EventConversationRemoved, PayloadRemoval)
			in.LeaveRoom = true
			out = append(out, in)
		}

	case MutationRenamed:
		out = append(out, toRoom(m.ConversationID, EventConversationUpdated))

	case MutationReadState:
		out = append(out, toUser(m.Actor, EventConversationUpdated, PayloadData))

	case MutationPinsChanged:
		out = append(out, toRoom(m.ConversationID, EventConversationPins))

	case MutationMessageSent:
		out = append(out, toRoom(m.ConversationID, EventMessageNew))
	}
	return out
}
