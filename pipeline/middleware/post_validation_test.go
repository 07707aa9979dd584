package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Valaery/worldengine/gateway"
	"github.com/Valaery/worldengine/model"
	"github.com/Valaery/worldengine/worldstore"
)

func TestPostValidation_DisabledSkipsCheck(t *testing.T) {
	m := &PostValidation{Enabled: false}
	tc := newTurnContext()
	tc.NarratorText = "mentions a sword you don't have"

	called := false
	err := m.Process(tc, func() error { called = true; return nil })

	assertNoErrorAndCalled(t, err, called)
	assert.Equal(t, 0, tc.PostRetries)
}

func TestPostValidation_PassesWhenNoForbiddenMentions(t *testing.T) {
	store := worldstore.New()
	store.PutActor(&model.Actor{Key: "player", CurrentSetting: "tavern"})
	m := &PostValidation{Store: store, Enabled: true, MaxRetries: 2}
	tc := newTurnContext()
	tc.NarratorText = "The room is quiet."

	called := false
	err := m.Process(tc, func() error { called = true; return nil })

	assertNoErrorAndCalled(t, err, called)
	assert.Equal(t, 0, tc.PostRetries)
}

func TestPostValidation_RetriesUntilCleanThenContinues(t *testing.T) {
	store := worldstore.New()
	store.PutActor(&model.Actor{Key: "player", CurrentSetting: "tavern"})
	store.PutItem(&model.Item{Key: "sword", Name: "sword"})

	provider := newFakeProvider("narrator-model", "You notice a clean, empty room.")
	gw := gateway.New(newRegistry(provider), nil)

	m := &PostValidation{Store: store, Gateway: gw, Model: "narrator-model", MaxTokens: 100, MaxRetries: 2, Enabled: true}
	tc := newTurnContext()
	tc.NarratorText = "You draw your sword."

	called := false
	err := m.Process(tc, func() error { called = true; return nil })

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "You notice a clean, empty room.", tc.NarratorText)
	assert.Equal(t, 1, tc.PostRetries)
}

func TestPostValidation_GivesUpAfterBudgetExhausted(t *testing.T) {
	store := worldstore.New()
	store.PutActor(&model.Actor{Key: "player", CurrentSetting: "tavern"})
	store.PutItem(&model.Item{Key: "sword", Name: "sword"})

	provider := newFakeProvider("narrator-model", "You draw your sword again.", "Your sword gleams.")
	gw := gateway.New(newRegistry(provider), nil)

	m := &PostValidation{Store: store, Gateway: gw, Model: "narrator-model", MaxTokens: 100, MaxRetries: 1, Enabled: true}
	tc := newTurnContext()
	tc.NarratorText = "You draw your sword."

	called := false
	err := m.Process(tc, func() error { called = true; return nil })

	require.NoError(t, err)
	assert.True(t, called, "chain still continues once the retry budget is spent")
	assert.Equal(t, 1, tc.PostRetries)
	assert.Contains(t, tc.NarratorText, "sword")
}
