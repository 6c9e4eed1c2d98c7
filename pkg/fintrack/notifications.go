package fintrack

// notificationService implements NotificationService
type notificationService struct {
	client *Client
}

func (s *notificationService) List() []*Notification {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return copyNotifications(c.state.notifications)
}

func (s *notificationService) UnreadCount() int {
	c := s.client
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()

	count := 0
	for _, n := range c.state.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

func (s *notificationService) MarkRead(notificationID string) error {
	c := s.client
	c.state.mu.Lock()
	found := false
	for _, n := range c.state.notifications {
		if n.ID == notificationID {
			n.Read = true
			found = true
			break
		}
	}
	c.state.mu.Unlock()

	if !found {
		return ErrNotFound
	}
	c.notify()
	return nil
}

func (s *notificationService) MarkAllRead() {
	c := s.client
	c.state.mu.Lock()
	for _, n := range c.state.notifications {
		n.Read = true
	}
	c.state.mu.Unlock()

	c.notify()
}
