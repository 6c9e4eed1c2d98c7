package memory

import (
	"context"
	"testing"
	"time"

	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/eshaffer321/fintrack-go/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_Accounts(t *testing.T) {
	ctx := context.Background()
	id := NewIdentity()

	_, err := id.SignIn(ctx, "ana@example.com", "Secret1!")
	assert.Equal(t, security.MsgInvalidCredentials, security.ToUserMessage(err))

	_, err = id.SignUp(ctx, "ana@example.com", "123")
	assert.Equal(t, security.MsgWeakPassword, security.ToUserMessage(err))

	created, err := id.SignUp(ctx, "Ana@Example.com", "Secret1!")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UserID)

	_, err = id.SignUp(ctx, "ana@example.com", "Secret1!")
	assert.Equal(t, security.MsgEmailInUse, security.ToUserMessage(err))

	name := "Ana"
	require.NoError(t, id.UpdateProfile(ctx, fintrack.ProfileUpdate{DisplayName: &name}))
	require.NoError(t, id.SignOut(ctx))
	assert.Error(t, id.UpdateProfile(ctx, fintrack.ProfileUpdate{DisplayName: &name}))

	signedIn, err := id.SignIn(ctx, " ana@example.com ", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, signedIn.UserID)
	assert.Equal(t, "Ana", signedIn.DisplayName)
}

func TestIdentity_OnAuthChange(t *testing.T) {
	ctx := context.Background()
	id := NewIdentity()

	events := make(chan *fintrack.Identity, 10)
	unsubscribe := id.OnAuthChange(func(ident *fintrack.Identity) { events <- ident })

	assert.Nil(t, <-events, "initial state is signed out")

	_, err := id.SignUp(ctx, "ana@example.com", "Secret1!")
	require.NoError(t, err)
	assert.NotNil(t, <-events)

	require.NoError(t, id.SignOut(ctx))
	assert.Nil(t, <-events)

	unsubscribe()
	_, err = id.SignIn(ctx, "ana@example.com", "Secret1!")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPersistence_Subscriptions(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence()

	sub, err := p.Subscribe(ctx, "transactions", fintrack.Filter{Field: "userId", Value: "u1"})
	require.NoError(t, err)
	assert.Empty(t, <-sub.Updates())

	id, err := p.Create(ctx, "transactions", fintrack.Document{"userId": "u1", "amount": 10.0})
	require.NoError(t, err)
	_, err = p.Create(ctx, "transactions", fintrack.Document{"userId": "u2", "amount": 20.0})
	require.NoError(t, err)

	snaps := <-sub.Updates()
	require.Len(t, snaps, 1)
	assert.Equal(t, id, snaps[0].ID)

	// Stored documents are copies
	snaps[0].Data["amount"] = 99.0
	assert.Equal(t, 10.0, lookupAmount(p, id))

	require.NoError(t, p.Delete(ctx, "transactions", id))
	assert.Empty(t, <-sub.Updates())
	assert.Error(t, p.Delete(ctx, "transactions", ""))

	require.NoError(t, sub.Close())
	_, open := <-sub.Updates()
	assert.False(t, open)

	p.mu.Lock()
	assert.Empty(t, p.watchers)
	p.mu.Unlock()
}

func lookupAmount(p *Persistence, id string) float64 {
	for _, s := range p.Documents("transactions") {
		if s.ID == id {
			return s.Data["amount"].(float64)
		}
	}
	return 0
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	v, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Delete(ctx, "k"))
	v, _ = c.Get(ctx, "k")
	assert.Nil(t, v)
}

func TestBackend_DrivesClient(t *testing.T) {
	ctx := context.Background()
	identity := NewIdentity()
	persistence := NewPersistence()
	cache := NewCache()

	client, err := fintrack.NewClient(&fintrack.ClientOptions{
		Identity:    identity,
		Persistence: persistence,
		Cache:       cache,
	})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Connect(ctx))

	profile, err := client.Auth.Register(ctx, "Ana", "ana@example.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.Name)

	_, err = client.Transactions.Create(ctx, &fintrack.CreateTransactionParams{
		Amount: 150, Type: fintrack.TransactionExpense, Description: "Groceries", Category: "Food", Date: time.Now(),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(client.Transactions.List()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, persistence.Documents(fintrack.CollectionTransactions), 1)

	cached, err := cache.Get(ctx, "transactions_"+profile.ID)
	require.NoError(t, err)
	assert.Contains(t, string(cached), "Groceries")

	// Signing out at the identity provider clears the client
	require.NoError(t, identity.SignOut(ctx))
	assert.Equal(t, fintrack.StateLoggedOut, client.Auth.State())
	assert.Empty(t, client.Transactions.List())
}
