package genui

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyContext() RequestContext {
	return RequestContext{UserID: "u1", CurrentInterests: []string{}, RecentActivity: nil}
}

func TestComposePageAlwaysHasDialogueAndComponents(t *testing.T) {
	utterances := []string{
		"I want to learn about money",
		"how do plants make energy?",
		"tell me about the roman empire",
		"?",
		"   x   ",
	}
	for _, u := range utterances {
		t.Run(u, func(t *testing.T) {
			page := ComposePage(u, emptyContext())
			assert.NotEmpty(t, page.Dialogue)
			assert.NotEmpty(t, page.Components)
			for _, c := range page.Components {
				require.NoError(t, DefaultCatalog().check(c))
			}
		})
	}
}

func TestComposePageMoneyScenario(t *testing.T) {
	page := ComposePage("I want to learn about money", RequestContext{UserID: "u1"})

	var ledgers, questions int
	for _, c := range page.Components {
		switch c.Type {
		case TypeLedger:
			ledgers++
			p, ok := c.Props.(LedgerProps)
			require.True(t, ok, "ledger props are typed")
			require.NotEmpty(t, p.Items)
			for _, it := range p.Items {
				assert.NotEmpty(t, it.Name)
				assert.Greater(t, it.RetailPrice, it.WholesalePrice)
			}
			assert.NotEmpty(t, p.Scenario)
			assert.NotEmpty(t, p.LearningGoal)
		case TypeQuestion:
			questions++
			p, ok := c.Props.(QuestionProps)
			require.True(t, ok)
			assert.NotEmpty(t, p.Text)
		}
	}
	assert.Equal(t, 1, ledgers)
	assert.Equal(t, 1, questions)
	assert.NotEmpty(t, page.NextActions)
}

func TestComposePageUsesFirstInterest(t *testing.T) {
	rc := RequestContext{UserID: "u1", CurrentInterests: []string{" ", "soccer", "chess"}}
	page := ComposePage("how do I make a profit?", rc)
	assert.Contains(t, page.Dialogue, "soccer")

	p := page.Components[1].Props.(LedgerProps)
	assert.Contains(t, p.Scenario, "soccer")
}

func TestComposePageIsDeterministic(t *testing.T) {
	rc := RequestContext{UserID: "u1", CurrentInterests: []string{"music"}}
	a := ComposePage("what is a market?", rc)
	b := ComposePage("what is a market?", rc)
	if diff := cmp.Diff(a, b, cmp.AllowUnexported(Component{})); diff != "" {
		t.Fatalf("baseline changed between calls (-first +second):\n%s", diff)
	}
}
