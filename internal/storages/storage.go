package storage

type Registry interface {
	GetMessagesStore() *MessagesStorage
	GetRosterStore() *RosterStorage
}

type DefaultRegistry struct {
	client *Client
}

func NewRegistry(c *Client) *DefaultRegistry {
	return &DefaultRegistry{
		client: c,
	}
}

func (r *DefaultRegistry) GetMessagesStore() *MessagesStorage {
	return NewMessagesStorage(r.client)
}

func (r *DefaultRegistry) GetRosterStore() *RosterStorage {
	return NewRosterStorage(r.client)
}
