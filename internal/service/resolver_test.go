package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinicdesk/internal/cache"
	"clinicdesk/internal/models"
	"clinicdesk/pkg/directory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestResolver(dir *mockDirectoryClient) (*IdentityResolver, *cache.MemoryResolutionCache) {
	c := cache.NewMemoryResolutionCache()
	r := NewIdentityResolver(dir, c, testLogger(), models.ResolverConfig{
		PositiveTTLHours:   24,
		NegativeTTLMinutes: 10,
	})
	return r, c
}

func TestResolve_NotMaskedAddress(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	for _, addr := range []string{
		"5511987654321@s.whatsapp.net",
		"123456789-987@g.us",
		"status@broadcast",
		"",
	} {
		res, err := r.Resolve(context.Background(), addr)
		require.NoError(t, err)
		assert.Nil(t, res, "address %q must be rejected without a network call", addr)
	}

	dir.AssertNotCalled(t, "GetContactByID", mock.Anything, mock.Anything)
}

func TestResolve_DirectLookup(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	dir.On("HasCredentials").Return(true)
	dir.On("GetContactByID", mock.Anything, "123456789012").Return(&directory.Contact{
		Raw: map[string]interface{}{"remoteJid": "5511987654321@s.whatsapp.net"},
	}, nil)

	res, err := r.Resolve(context.Background(), "123456789012@lid")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "5511987654321", res.Phone)
	assert.Equal(t, "5511987654321@s.whatsapp.net", res.JID)
	dir.AssertNotCalled(t, "FindContacts", mock.Anything, mock.Anything)
}

func TestResolve_FallbackSearch(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	dir.On("HasCredentials").Return(true)
	dir.On("GetContactByID", mock.Anything, "123456789012").Return(&directory.Contact{
		Raw: map[string]interface{}{"name": "no phone here"},
	}, nil)
	dir.On("FindContacts", mock.Anything, "123456789012@lid").Return([]directory.Contact{
		{Raw: map[string]interface{}{"number": "5511987654321"}},
	}, nil)

	res, err := r.Resolve(context.Background(), "123456789012@lid")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "5511987654321", res.Phone)
}

func TestResolve_CachesPositiveResult(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	dir.On("HasCredentials").Return(true)
	dir.On("GetContactByID", mock.Anything, "123456789012").Return(&directory.Contact{
		Raw: map[string]interface{}{"remoteJid": "5511987654321@s.whatsapp.net"},
	}, nil).Once()

	first, err := r.Resolve(context.Background(), "123456789012@lid")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "123456789012@lid")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	dir.AssertNumberOfCalls(t, "GetContactByID", 1)
}

func TestResolve_CachesNegativeResult(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	dir.On("HasCredentials").Return(true)
	dir.On("GetContactByID", mock.Anything, "123456789012").Return(&directory.Contact{
		Raw: map[string]interface{}{},
	}, nil).Once()
	dir.On("FindContacts", mock.Anything, "123456789012@lid").Return([]directory.Contact{}, nil).Once()

	res, err := r.Resolve(context.Background(), "123456789012@lid")
	assert.Nil(t, res)
	assert.Error(t, err)

	// Second call hits the negative cache without another network call.
	res, err = r.Resolve(context.Background(), "123456789012@lid")
	assert.Nil(t, res)
	assert.NoError(t, err)

	dir.AssertNumberOfCalls(t, "GetContactByID", 1)
	dir.AssertNumberOfCalls(t, "FindContacts", 1)
}

func TestResolve_AsymmetricTTL(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, c := newTestResolver(dir)

	errDown := errors.New("directory down")
	dir.On("HasCredentials").Return(true)
	dir.On("GetContactByID", mock.Anything, mock.Anything).Return(nil, errDown)
	dir.On("FindContacts", mock.Anything, mock.Anything).Return(nil, errDown)

	_, _ = r.Resolve(context.Background(), "111111111111@lid")

	entry, ok := c.Get("111111111111@lid")
	require.True(t, ok)
	assert.True(t, entry.Negative)

	// The negative entry must expire on the short TTL.
	c.Set("222222222222@lid", models.IdentityResolution{Phone: "5511987654321"}, 24*time.Hour)
	assert.Equal(t, 2, c.Len())
}

func TestResolve_NoCredentials(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	dir.On("HasCredentials").Return(false)

	res, err := r.Resolve(context.Background(), "123456789012@lid")
	assert.Nil(t, res)
	assert.Error(t, err)
	dir.AssertNotCalled(t, "GetContactByID", mock.Anything, mock.Anything)
}

func TestResolverStage_RewritesMaskedAddress(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	dir.On("HasCredentials").Return(true)
	dir.On("GetContactByID", mock.Anything, "123456789012").Return(&directory.Contact{
		Raw: map[string]interface{}{"remoteJid": "5511987654321@s.whatsapp.net"},
	}, nil)

	state := models.NewPipelineState(&models.IncomingWebhookEvent{
		Key: models.MessageKey{RemoteJID: "123456789012@lid", ID: "MSG1"},
	})

	delta, err := r.Run(context.Background(), state)
	require.NoError(t, err)
	state.Apply(delta)

	assert.Equal(t, "5511987654321@s.whatsapp.net", state.EffectiveJID())
	assert.Equal(t, models.StrategyDirectory, state.ResolverStrategy)
	assert.GreaterOrEqual(t, state.ResolverLatencyMs, int64(0))
}

func TestResolverStage_UnresolvedContinues(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	dir.On("HasCredentials").Return(false)

	state := models.NewPipelineState(&models.IncomingWebhookEvent{
		Key: models.MessageKey{RemoteJID: "123456789012@lid", ID: "MSG1"},
	})

	delta, err := r.Run(context.Background(), state)
	require.NoError(t, err)
	state.Apply(delta)

	assert.True(t, state.ShouldContinue, "an unresolved address must not abort the event")
	assert.NotEmpty(t, state.ResolverError)
	assert.Equal(t, "123456789012@lid", state.EffectiveJID())
}

func TestResolverStage_SkipsPhoneAddress(t *testing.T) {
	dir := &mockDirectoryClient{}
	r, _ := newTestResolver(dir)

	state := models.NewPipelineState(&models.IncomingWebhookEvent{
		Key: models.MessageKey{RemoteJID: "5511987654321@s.whatsapp.net", ID: "MSG1"},
	})

	delta, err := r.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, delta)
	dir.AssertNotCalled(t, "GetContactByID", mock.Anything, mock.Anything)
}
