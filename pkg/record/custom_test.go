package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCustomAction_RequiresURL(t *testing.T) {
	task := NewTask("x")
	require.NoError(t, task.SetType(TypeURL, []string{"site"}, []string{"https://appigo.com"}))

	applied, err := task.SetCustomAction(CustomAction{AppDisplayName: "AccuFuel"})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, TypeURL, task.Type())
	assert.Equal(t, []string{"site"}, task.TypeKeys())
}

func TestSetCustomAction_EmptyActionIsNoOp(t *testing.T) {
	task := NewTask("x")
	applied, err := task.SetCustomAction(CustomAction{})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, TypeNormal, task.Type())
}

func TestSetCustomAction_RequiresDisplayName(t *testing.T) {
	task := NewTask("x")
	_, err := task.SetCustomAction(CustomAction{AppDisplayName: "  ", ActionLaunchURL: mustURL(t, "accufuel://a")})
	assert.ErrorIs(t, err, ErrMissingDisplayName)
	assert.Equal(t, TypeNormal, task.Type())
}

func TestSetCustomAction_ReplacesPreviousAction(t *testing.T) {
	task := NewTask("Jeep Liberty: Change Oil")
	first := CustomAction{
		AppDisplayName:      "AccuFuel",
		CompletionNotifyURL: mustURL(t, "https://api.example.com/done"),
		ActionLaunchURL:     mustURL(t, "accufuel://first"),
		ActionImage:         NewImage(testPNG(t, 29, 29)),
	}
	applied, err := task.SetCustomAction(first)
	require.NoError(t, err)
	require.True(t, applied)

	second := CustomAction{
		AppID:               "com.appigo.accufuel",
		AppDisplayName:      "AccuFuel",
		CompletionLaunchURL: mustURL(t, "accufuel://second"),
	}
	applied, err = task.SetCustomAction(second)
	require.NoError(t, err)
	require.True(t, applied)

	assert.Equal(t, TypeCustom, task.Type())
	assert.Equal(t, []string{KeyAppID, KeyAppDisplayName, KeyCompletionLaunchURL}, task.TypeKeys())
	assert.Nil(t, task.ActionImage)

	got, ok := task.CustomAction()
	require.True(t, ok)
	assert.Equal(t, "com.appigo.accufuel", got.AppID)
	assert.Nil(t, got.CompletionNotifyURL)
	assert.Nil(t, got.ActionLaunchURL)
	assert.Equal(t, "accufuel://second", got.CompletionLaunchURL.String())
}

func TestSetCustomAction_ImageNeedsActionURL(t *testing.T) {
	task := NewTask("x")
	applied, err := task.SetCustomAction(CustomAction{
		AppDisplayName:      "App",
		CompletionLaunchURL: mustURL(t, "app://done"),
		ActionImage:         NewImage(testPNG(t, 29, 29)),
	})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Nil(t, task.ActionImage)
}

func TestCustomAction_NotCustom(t *testing.T) {
	_, ok := NewTask("x").CustomAction()
	assert.False(t, ok)
}
