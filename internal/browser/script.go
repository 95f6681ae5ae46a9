package browser

import (
	"encoding/json"
	"fmt"

	"github.com/themizzi/uiverify/internal/models"
)

// forceStateScript toggles hiddenClass on an element by id and reports
// whether the element exists.
const forceStateScript = `([id, show, hiddenClass]) => {
	const el = document.getElementById(id);
	if (!el) {
		return false;
	}
	if (show) {
		el.classList.remove(hiddenClass);
	} else {
		el.classList.add(hiddenClass);
	}
	return true;
}`

func forceStateArgs(id string, visibility models.Visibility, hiddenClass string) []interface{} {
	return []interface{}{id, visibility == models.VisibilityShow, hiddenClass}
}

// forceStateExpression inlines the arguments for engines that only evaluate
// plain expressions.
func forceStateExpression(id string, visibility models.Visibility, hiddenClass string) (string, error) {
	args, err := json.Marshal(forceStateArgs(id, visibility, hiddenClass))
	if err != nil {
		return "", fmt.Errorf("failed to encode force state arguments: %w", err)
	}
	return fmt.Sprintf("(%s)(%s)", forceStateScript, args), nil
}
