// internal/widget/buttons.go
//
// Button widgets: Button, Toggle, and Dropdown.
//
// Context
// -------
// All three derive from the abstract AbstractButton, which carries the
// label, the optional icon, and an optional Callback model.  ButtonLike
// contributes button_type; it is a mixin, so its descriptors are appended
// to AbstractButton's own list rather than forming a type of their own.
//
// Clicks
// ------
// A Toggle click is a change of `active`; Button and Dropdown clicks are
// the semantic event "button_click".  OnClick, JSOnClick, and Click hide
// the difference from callers.
package widget

import (
	"fmt"

	"github.com/yanizio/widgetkit/internal/model"
	"github.com/yanizio/widgetkit/internal/property"
)

const (
	TypeAbstractButton = "AbstractButton"
	TypeButton         = "Button"
	TypeToggle         = "Toggle"
	TypeDropdown       = "Dropdown"

	// EventButtonClick is fired by Button and Dropdown clicks.
	EventButtonClick = "button_click"
)

// ButtonType selects the visual style of a button.
var ButtonType = property.Enum("default", "primary", "success", "warning", "danger")

// MenuItem is a Dropdown entry: a label and either an item value or a
// Callback model.  A nil entry renders as a separator.
var MenuItem = property.Nullable(property.Tuple(
	property.String,
	property.Either(property.String, property.Instance(TypeCallback)),
))

// ButtonLike is the shared button_type mixin.
var ButtonLike = []property.Descriptor{
	property.MustDeclare("button_type", ButtonType, "default").
		WithHelp("A style for the button, signifying its role."),
}

// ButtonClick is the payload of "button_click".
type ButtonClick struct {
	Model string `json:"model"`
}

func init() {
	Register(Definition{
		Name:     TypeAbstractButton,
		Parent:   TypeWidget,
		Abstract: true,
		Properties: append(append([]property.Descriptor(nil), ButtonLike...),
			property.MustDeclare("label", property.String, "").
				WithHelp("The text label for the button to display."),
			property.MustDeclare("icon", property.Instance(TypeAbstractIcon), nil),
			property.MustDeclare("callback", property.Instance(TypeCallback), nil).
				WithHelp("A callback run in the browser whenever the button is activated."),
			property.Override("width", 300),
			property.Override("height_policy", "min"),
		),
	})

	Register(Definition{
		Name:   TypeButton,
		Parent: TypeAbstractButton,
		Properties: []property.Descriptor{
			property.Override("label", "Button"),
		},
	})

	Register(Definition{
		Name:   TypeToggle,
		Parent: TypeAbstractButton,
		Properties: []property.Descriptor{
			property.Override("label", "Toggle"),
			property.MustDeclare("active", property.Bool, false).
				WithHelp("The initial state of a button."),
		},
	})

	Register(Definition{
		Name:   TypeDropdown,
		Parent: TypeAbstractButton,
		Properties: []property.Descriptor{
			property.Override("label", "Dropdown"),
			property.MustDeclare("default_value", property.String, "").
				WithHelp("The value reported when the main button is clicked."),
			property.MustDeclare("menu", property.List(MenuItem), []any{}).
				WithHelp("Button's dropdown menu consisting of entries containing item's text and value name."),
		},
	})
}

// OnClick registers fn for clicks.  On a Toggle fn receives the new
// `active` value; on other buttons it receives the ButtonClick payload.
func OnClick(inst *model.Instance, fn func(v any) error) (model.RegistrationID, error) {
	if fn == nil {
		return 0, fmt.Errorf("on click: nil callback")
	}
	if err := clickable(inst); err != nil {
		return 0, err
	}
	if inst.IsA(TypeToggle) {
		return inst.OnChange("active", func(_ string, _, v any) error { return fn(v) })
	}
	return inst.OnEvent(EventButtonClick, model.EventFunc(fn))
}

// JSOnClick registers browser-side code for clicks.
func JSOnClick(inst *model.Instance, code string) (model.RegistrationID, error) {
	if err := clickable(inst); err != nil {
		return 0, err
	}
	if inst.IsA(TypeToggle) {
		return inst.JSOnChange("active", code)
	}
	return inst.JSOnEvent(EventButtonClick, code)
}

// Click simulates a user click: a Toggle flips `active`, other buttons
// fire "button_click".
func Click(inst *model.Instance) error {
	if err := clickable(inst); err != nil {
		return err
	}
	if inst.IsA(TypeToggle) {
		v, err := inst.Get("active")
		if err != nil {
			return err
		}
		active, _ := v.(bool)
		return inst.Set("active", !active)
	}
	return inst.Fire(EventButtonClick, ButtonClick{Model: inst.ID()})
}

func clickable(inst *model.Instance) error {
	if inst == nil {
		return fmt.Errorf("click: nil instance")
	}
	if inst.Destroyed() {
		return fmt.Errorf("click: %w", model.ErrDestroyed)
	}
	if !inst.IsA(TypeAbstractButton) {
		return fmt.Errorf("click: %s is not a button", inst.Type().Name())
	}
	return nil
}
