package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentline/internal/domain/entity"
	"rentline/pkg/errors"
)

// memMessagingRepo is an in-memory MessagingRepository. Watch callbacks are
// driven manually through emitMessages/emitConversations so tests control
// exactly what each snapshot contains.
type memMessagingRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string]map[string]*entity.Message
	seq           int
	base          time.Time

	msgWatchers  map[string]map[int]func([]*entity.Message)
	convWatchers map[string]map[int]func([]*entity.Conversation)
	watcherSeq   int

	conflictOnce bool
}

func newMemMessagingRepo() *memMessagingRepo {
	return &memMessagingRepo{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string]map[string]*entity.Message),
		base:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		msgWatchers:   make(map[string]map[int]func([]*entity.Message)),
		convWatchers:  make(map[string]map[int]func([]*entity.Conversation)),
	}
}

func (r *memMessagingRepo) tick() time.Time {
	r.seq++
	return r.base.Add(time.Duration(r.seq) * time.Millisecond)
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	clone := *c
	clone.Participants = append([]string(nil), c.Participants...)
	clone.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		clone.UnreadCount[k] = v
	}
	return &clone
}

func cloneMessage(m *entity.Message) *entity.Message {
	clone := *m
	clone.ReadBy = make(map[string]time.Time, len(m.ReadBy))
	for k, v := range m.ReadBy {
		clone.ReadBy[k] = v
	}
	return &clone
}

func (r *memMessagingRepo) CreateConversation(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conversation.ID == "" {
		conversation.ID = entity.ConversationID(conversation.Participants[0], conversation.Participants[1])
	}

	if r.conflictOnce {
		// Simulate losing the create race: the other starter's document
		// appears in the store and our create reports a conflict.
		r.conflictOnce = false
		winner := cloneConversation(conversation)
		winner.CreatedAt = r.tick()
		winner.UpdatedAt = winner.CreatedAt
		r.conversations[winner.ID] = winner
		return errors.Conflict("Conversation already exists")
	}

	if _, exists := r.conversations[conversation.ID]; exists {
		return errors.Conflict("Conversation already exists")
	}

	now := r.tick()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	r.conversations[conversation.ID] = cloneConversation(conversation)
	return nil
}

func (r *memMessagingRepo) GetConversationByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(conversation), nil
}

func (r *memMessagingRepo) ListConversationsByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*entity.Conversation
	for _, conversation := range r.conversations {
		if conversation.HasParticipant(userID) {
			result = append(result, cloneConversation(conversation))
		}
	}
	return result, nil
}

func (r *memMessagingRepo) UpdateConversation(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[conversation.ID]; !ok {
		return errors.NotFound("Conversation", nil)
	}
	clone := cloneConversation(conversation)
	clone.UpdatedAt = r.tick()
	r.conversations[conversation.ID] = clone
	return nil
}

func (r *memMessagingRepo) AppendMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[message.ConversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = r.tick()

	if r.messages[message.ConversationID] == nil {
		r.messages[message.ConversationID] = make(map[string]*entity.Message)
	}
	r.messages[message.ConversationID][message.ID] = cloneMessage(message)

	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int)
	}
	for _, participantID := range conversation.Participants {
		if participantID != message.SenderID {
			conversation.UnreadCount[participantID]++
		}
	}
	conversation.LastMessageText = message.Text
	conversation.LastMessageAt = message.CreatedAt
	conversation.UpdatedAt = message.CreatedAt

	return nil
}

func (r *memMessagingRepo) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	message, ok := r.messages[conversationID][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return cloneMessage(message), nil
}

func (r *memMessagingRepo) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*entity.Message
	for _, message := range r.messages[conversationID] {
		result = append(result, cloneMessage(message))
	}
	return result, nil
}

func (r *memMessagingRepo) UpdateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[message.ConversationID][message.ID]; !ok {
		return errors.NotFound("Message", nil)
	}
	r.messages[message.ConversationID][message.ID] = cloneMessage(message)
	return nil
}

func (r *memMessagingRepo) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.messages[conversationID], messageID)
	return nil
}

func (r *memMessagingRepo) WatchMessages(ctx context.Context, conversationID string, fn func([]*entity.Message)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.watcherSeq++
	id := r.watcherSeq
	if r.msgWatchers[conversationID] == nil {
		r.msgWatchers[conversationID] = make(map[int]func([]*entity.Message))
	}
	r.msgWatchers[conversationID][id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.msgWatchers[conversationID], id)
	}, nil
}

func (r *memMessagingRepo) WatchConversations(ctx context.Context, userID string, fn func([]*entity.Conversation)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.watcherSeq++
	id := r.watcherSeq
	if r.convWatchers[userID] == nil {
		r.convWatchers[userID] = make(map[int]func([]*entity.Conversation))
	}
	r.convWatchers[userID][id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.convWatchers[userID], id)
	}, nil
}

// emitMessages pushes a raw snapshot to every message watcher of the
// conversation, exactly as received.
func (r *memMessagingRepo) emitMessages(conversationID string, messages []*entity.Message) {
	r.mu.Lock()
	fns := make([]func([]*entity.Message), 0, len(r.msgWatchers[conversationID]))
	for _, fn := range r.msgWatchers[conversationID] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(messages)
	}
}

func (r *memMessagingRepo) emitConversations(userID string, conversations []*entity.Conversation) {
	r.mu.Lock()
	fns := make([]func([]*entity.Conversation), 0, len(r.convWatchers[userID]))
	for _, fn := range r.convWatchers[userID] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(conversations)
	}
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	r := &memUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (r *memUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type memListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing
}

func newMemListingRepo(listings ...*entity.Listing) *memListingRepo {
	r := &memListingRepo{listings: make(map[string]*entity.Listing)}
	for _, l := range listings {
		r.listings[l.ID] = l
	}
	return r
}

func (r *memListingRepo) Create(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	r.listings[listing.ID] = listing
	return nil
}

func (r *memListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return listing, nil
}

func (r *memListingRepo) ListByLandlordID(ctx context.Context, landlordID string, limit, offset int) ([]*entity.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.Listing
	for _, listing := range r.listings {
		if listing.LandlordID == landlordID {
			result = append(result, listing)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memListingRepo) ListByCity(ctx context.Context, city string, limit, offset int) ([]*entity.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.Listing
	for _, listing := range r.listings {
		if city == "" || listing.City == city {
			result = append(result, listing)
		}
	}
	return result, int64(len(result)), nil
}

func (r *memListingRepo) Update(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[listing.ID] = listing
	return nil
}

func (r *memListingRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listings, id)
	return nil
}

func (r *memListingRepo) IncrementViews(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.listings[id]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	listing.Views++
	return nil
}

type sentPayload struct {
	userID         string
	conversationID string
	excludeUserID  string
	payload        []byte
}

// memNotifier records every push instead of delivering it.
type memNotifier struct {
	mu     sync.Mutex
	toUser []sentPayload
	toConv []sentPayload
}

func (n *memNotifier) SendToUser(userID string, payload []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toUser = append(n.toUser, sentPayload{userID: userID, payload: payload})
}

func (n *memNotifier) SendToConversation(conversationID string, payload []byte, excludeUserID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toConv = append(n.toConv, sentPayload{conversationID: conversationID, excludeUserID: excludeUserID, payload: payload})
}
