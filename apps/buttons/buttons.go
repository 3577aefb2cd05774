// apps/buttons/buttons.go
//
// Demo application served at /buttons.
//
// One session gets a Button, a Toggle, and a Dropdown.  Clicking the
// button counts clicks in its label.  The toggle enables or disables the
// button, and mirrors its state to the browser console.  The dropdown
// copies its default value into the button label.  Closing the session
// logs how many clicks it saw.
package buttons

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/widgetkit/internal/app"
	"github.com/yanizio/widgetkit/internal/lifecycle"
	"github.com/yanizio/widgetkit/internal/widget"
)

// Path is where the app is registered.
const Path = "/buttons"

func init() {
	// Register at exact path /buttons
	app.Register(Path, build)
}

// build populates one session's document.
func build(doc *lifecycle.Document) error {
	button, err := doc.Create(widget.TypeButton, map[string]any{
		"label":       "Clicked 0 times",
		"button_type": "primary",
	})
	if err != nil {
		return err
	}
	toggle, err := doc.Create(widget.TypeToggle, map[string]any{
		"label":  "Enabled",
		"active": true,
	})
	if err != nil {
		return err
	}
	log, err := doc.Create(widget.TypeCustomJS, map[string]any{
		"code": "console.log('toggle', cb_obj.active)",
	})
	if err != nil {
		return err
	}
	dropdown, err := doc.Create(widget.TypeDropdown, map[string]any{
		"label":         "Presets",
		"default_value": "Hello",
		"menu": []any{
			[]any{"Hello", "Hello"},
			nil,
			[]any{"Log", log},
		},
	})
	if err != nil {
		return err
	}

	clicks := 0
	if _, err := widget.OnClick(button, func(any) error {
		clicks++
		return button.Set("label", fmt.Sprintf("Clicked %d times", clicks))
	}); err != nil {
		return err
	}

	if _, err := widget.OnClick(toggle, func(v any) error {
		active, _ := v.(bool)
		label := "Disabled"
		if active {
			label = "Enabled"
		}
		if err := toggle.Set("label", label); err != nil {
			return err
		}
		return button.Set("disabled", !active)
	}); err != nil {
		return err
	}
	if _, err := widget.JSOnClick(toggle, "console.log('toggle', cb_obj.active)"); err != nil {
		return err
	}

	if _, err := widget.OnClick(dropdown, func(any) error {
		v, err := dropdown.Get("default_value")
		if err != nil {
			return err
		}
		return button.Set("label", v)
	}); err != nil {
		return err
	}

	doc.OnSessionDestroyed(func(sc *lifecycle.SessionContext) error {
		zap.S().Infow("buttons session closed", "session", sc.ID, "clicks", clicks)
		return nil
	})
	return nil
}
