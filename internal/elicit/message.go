package elicit

import (
	"fmt"

	"github.com/cocosci/fishchain/internal/model"
)

// Message converts a finalized response into the message passed down a chain.
// Hidden slots are absent; confidence travels under model.InformationKey.
func Message(resp model.FinalizedResponse) model.Message {
	msg := make(model.Message, len(resp.Values)+1)
	for label, v := range resp.Values {
		msg[label] = v
	}
	if resp.Confidence != nil {
		msg[model.InformationKey] = *resp.Confidence
	}
	return msg
}

// MessageToBeliefState rebuilds a belief state from a received message. Keys
// present in the message are revealed and set; absent keys are hidden.
func MessageToBeliefState(msg model.Message, cond model.Condition, mode model.Mode) (model.BeliefState, error) {
	n := len(cond.Categories)
	state := model.BeliefState{
		Mode:     mode,
		Values:   make([]model.Slot, n),
		Revealed: make([]bool, n+1),
	}

	for key, v := range msg {
		if key == model.InformationKey {
			state.Confidence = model.Slot{Value: v, Set: true}
			state.Revealed[n] = true
			continue
		}
		i := cond.IndexOf(key)
		if i < 0 {
			return model.BeliefState{}, fmt.Errorf("%w: %q in message", ErrUnknownCategory, key)
		}
		state.Values[i] = model.Slot{Value: v, Set: true}
		state.Revealed[i] = true
	}
	return state, nil
}
