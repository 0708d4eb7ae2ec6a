package genui

import (
	"fmt"
	"strings"
	"unicode"
)

type topic int

const (
	topicGeneral topic = iota
	topicFinance
	topicScience
)

var topicKeywords = []struct {
	topic    topic
	keywords []string
}{
	{topicFinance, []string{"money", "price", "profit", "business", "sell", "buy", "shop", "store", "finance", "econom", "market", "cost", "budget", "save", "earn"}},
	{topicScience, []string{"science", "plant", "energy", "atom", "physic", "biolog", "chemi", "space", "planet", "experiment"}},
}

// classify matches keywords against word prefixes, so "economics" hits
// "econom" while "learn" does not hit "earn".
func classify(utterance string) topic {
	words := strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tk := range topicKeywords {
		for _, kw := range tk.keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return tk.topic
				}
			}
		}
	}
	return topicGeneral
}

// ComposePage builds a page from static heuristics without calling the model.
// It always returns at least one component and a non-empty dialogue.
func ComposePage(utterance string, rc RequestContext) Page {
	interest := firstInterest(rc.CurrentInterests)
	switch classify(utterance) {
	case topicFinance:
		return financePage(interest)
	case topicScience:
		return sciencePage(interest)
	default:
		return generalPage(utterance, interest)
	}
}

func firstInterest(interests []string) string {
	for _, i := range interests {
		if s := strings.TrimSpace(i); s != "" {
			return s
		}
	}
	return ""
}

func financePage(interest string) Page {
	scenario := "You run a small lemonade stand at the school fair."
	dialogue := "Let's learn about money by running a tiny business! Every item you sell has a cost and a price. The gap between them is your profit."
	if interest != "" {
		scenario = fmt.Sprintf("You run a snack stand at a %s event.", interest)
		dialogue = fmt.Sprintf("You like %s, so let's run a snack stand at a %s event! Every item you sell has a cost and a price. The gap between them is your profit.", interest, interest)
	}
	return Page{
		Dialogue: dialogue,
		Components: []Component{
			NewComponent(TypeIllustration, IllustrationProps{
				Description: "A cheerful market stall with a price board and a cash box.",
				Style:       "sketch",
			}),
			NewComponent(TypeLedger, LedgerProps{
				Scenario: scenario,
				Items: []LedgerItem{
					{Name: "Lemonade", WholesalePrice: 0.5, RetailPrice: 2.0},
					{Name: "Cookie", WholesalePrice: 0.3, RetailPrice: 1.0},
					{Name: "Juice box", WholesalePrice: 0.8, RetailPrice: 1.5},
				},
				LearningGoal: "Understand how wholesale and retail prices determine profit.",
			}),
			NewComponent(TypeQuestion, QuestionProps{
				Text: "Which item earns you the most profit for each one you sell? How could you change its price to earn even more?",
				Hint: "Profit = retail price - wholesale price.",
			}),
		},
		NextActions: []NextAction{
			{ID: "adjust-prices", Label: "Try changing a price", Action: "focus:dynamicLedger"},
			{ID: "learn-margin", Label: "What is a profit margin?", Action: "ask:What is a profit margin?"},
		},
	}
}

func sciencePage(interest string) Page {
	dialogue := "Scientists learn by asking questions and testing ideas. Let's explore one together!"
	if interest != "" {
		dialogue = fmt.Sprintf("Scientists learn by asking questions and testing ideas. Let's find the science hiding in %s!", interest)
	}
	return Page{
		Dialogue: dialogue,
		Components: []Component{
			NewComponent(TypeIllustration, IllustrationProps{
				Description: "A notebook sketch of a simple experiment with labelled arrows.",
				Style:       "sketch",
			}),
			NewComponent(TypeConceptCard, ConceptCardProps{
				Title: "The scientific method",
				Body:  "Ask a question, make a guess (a hypothesis), test it with an experiment, then look at what happened.",
			}),
			NewComponent(TypeQuestion, QuestionProps{
				Text: "What is one thing you have noticed that you would like to test?",
			}),
		},
		NextActions: []NextAction{
			{ID: "design-experiment", Label: "Design an experiment", Action: "ask:Help me design a simple experiment"},
		},
	}
}

func generalPage(utterance, interest string) Page {
	subject := strings.TrimSpace(utterance)
	if subject == "" {
		subject = "something new"
	}
	dialogue := fmt.Sprintf("Great question! Let's explore %q step by step.", subject)
	if interest != "" {
		dialogue = fmt.Sprintf("Great question! Let's explore %q step by step, and connect it to %s along the way.", subject, interest)
	}
	return Page{
		Dialogue: dialogue,
		Components: []Component{
			NewComponent(TypeIllustration, IllustrationProps{
				Description: "A hand-drawn map with a winding path marked 'start here'.",
				Style:       "sketch",
			}),
			NewComponent(TypeConceptCard, ConceptCardProps{
				Title: "Start with what you know",
				Body:  "Every big idea is built from smaller ones. Let's find the pieces you already understand.",
			}),
			NewComponent(TypeQuestion, QuestionProps{
				Text: "What do you already know about this topic?",
			}),
		},
		NextActions: []NextAction{
			{ID: "explain-simply", Label: "Explain it simply", Action: "ask:Explain it like I'm ten"},
			{ID: "show-example", Label: "Show me an example", Action: "ask:Show me a real-world example"},
		},
	}
}
