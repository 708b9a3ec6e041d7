package record

import (
	"net/url"
	"strings"
)

// Type data keys used by custom tasks.
const (
	KeyAppID               = "app-id"
	KeyAppDisplayName      = "app-display-name"
	KeyCompletionNotifyURL = "completion-notify-url"
	KeyCompletionLaunchURL = "completion-launch-url"
	KeyActionLaunchURL     = "action-launch-url"
)

// CustomAction lets Todo call back into the producing app when the task is
// completed or its action button is tapped.
type CustomAction struct {
	AppID          string // optional bundle/app identifier of the producer
	AppDisplayName string // shown to the user regardless of locale

	CompletionNotifyURL *url.URL // backend service to notify on completion
	CompletionLaunchURL *url.URL // opened when the task is completed
	ActionLaunchURL     *url.URL // opened by the action button

	// ActionImage is the action button icon, 29x29 (58x58 at 2x). It is only
	// kept when ActionLaunchURL is set.
	ActionImage *Image
}

func (a CustomAction) hasURL() bool {
	return a.CompletionNotifyURL != nil || a.CompletionLaunchURL != nil || a.ActionLaunchURL != nil
}

// SetCustomAction turns t into a Custom task carrying a. The previous type,
// type data and action image are replaced wholesale. Without any URL the
// call does nothing and reports applied=false, whatever else a holds.
func (t *Task) SetCustomAction(a CustomAction) (applied bool, err error) {
	if !a.hasURL() {
		return false, nil
	}
	name := strings.TrimSpace(a.AppDisplayName)
	if name == "" {
		return false, ErrMissingDisplayName
	}

	var keys, values []string
	add := func(k, v string) {
		keys = append(keys, k)
		values = append(values, v)
	}
	if id := strings.TrimSpace(a.AppID); id != "" {
		add(KeyAppID, id)
	}
	add(KeyAppDisplayName, name)
	if a.CompletionNotifyURL != nil {
		add(KeyCompletionNotifyURL, a.CompletionNotifyURL.String())
	}
	if a.CompletionLaunchURL != nil {
		add(KeyCompletionLaunchURL, a.CompletionLaunchURL.String())
	}
	if a.ActionLaunchURL != nil {
		add(KeyActionLaunchURL, a.ActionLaunchURL.String())
	}
	if err := t.SetType(TypeCustom, keys, values); err != nil {
		return false, err
	}
	t.ActionImage = nil
	if a.ActionLaunchURL != nil {
		t.ActionImage = a.ActionImage.clone()
	}
	return true, nil
}

// CustomAction reads back the action stored by SetCustomAction. URLs that do
// not parse are left nil.
func (t *Task) CustomAction() (CustomAction, bool) {
	if t.taskType != TypeCustom {
		return CustomAction{}, false
	}
	var a CustomAction
	a.AppID, _ = t.TypeValue(KeyAppID)
	a.AppDisplayName, _ = t.TypeValue(KeyAppDisplayName)
	a.CompletionNotifyURL = t.typeURL(KeyCompletionNotifyURL)
	a.CompletionLaunchURL = t.typeURL(KeyCompletionLaunchURL)
	a.ActionLaunchURL = t.typeURL(KeyActionLaunchURL)
	a.ActionImage = t.ActionImage.clone()
	return a, true
}

func (t *Task) typeURL(key string) *url.URL {
	s, ok := t.TypeValue(key)
	if !ok {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil
	}
	return u
}
