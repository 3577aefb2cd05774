// internal/model/instance_test.go
//
// Unit-tests for instances and the change-notification bus.
//
// Context
// -------
// declare registers an abstract Base{label, width, callback}, a concrete
// Toggle(Base) that overrides label and adds active, and a Script type
// used as the target of the Instance-valued callback property.  Remote
// delivery is captured with remote.Recorder.
//
// Run: go test ./internal/model -v

package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/yanizio/widgetkit/internal/property"
	"github.com/yanizio/widgetkit/internal/remote"
	"github.com/yanizio/widgetkit/internal/schema"
)

type types struct {
	base, toggle, script *schema.TypeNode
}

func declare(t *testing.T) types {
	t.Helper()
	reg := schema.New()
	base, err := reg.RegisterType("Base", nil, []property.Descriptor{
		property.MustDeclare("label", property.String, ""),
		property.MustDeclare("width", property.Nullable(property.Int), nil),
		property.MustDeclare("callback", property.Instance("Script"), nil),
	}, true)
	if err != nil {
		t.Fatalf("register Base: %v", err)
	}
	toggle, err := reg.RegisterType("Toggle", base, []property.Descriptor{
		property.Override("label", "Toggle"),
		property.MustDeclare("active", property.Bool, false),
	}, false)
	if err != nil {
		t.Fatalf("register Toggle: %v", err)
	}
	script, err := reg.RegisterType("Script", nil, []property.Descriptor{
		property.MustDeclare("code", property.String, ""),
	}, false)
	if err != nil {
		t.Fatalf("register Script: %v", err)
	}
	return types{base: base, toggle: toggle, script: script}
}

func mustNew(t *testing.T, n *schema.TypeNode, initial map[string]any, opts ...Option) *Instance {
	t.Helper()
	inst, err := New(n, initial, opts...)
	if err != nil {
		t.Fatalf("new %s: %v", n.Name(), err)
	}
	return inst
}

func mustSet(t *testing.T, inst *Instance, attr string, v any) {
	t.Helper()
	if err := inst.Set(attr, v); err != nil {
		t.Fatalf("set %s=%v: %v", attr, v, err)
	}
}

func get(t *testing.T, inst *Instance, attr string) any {
	t.Helper()
	v, err := inst.Get(attr)
	if err != nil {
		t.Fatalf("get %s: %v", attr, err)
	}
	return v
}

func wantIs(t *testing.T, err, target error, what string) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("%s: err = %v, want %v", what, err, target)
	}
}

func TestNewRejectsAbstractAndBadInitialValues(t *testing.T) {
	ts := declare(t)

	for _, initial := range []map[string]any{nil, {}, {"label": "x"}, {"nope": 1}} {
		_, err := New(ts.base, initial)
		wantIs(t, err, property.ErrAbstractInstantiation, "abstract Base")
	}

	_, err := New(ts.toggle, map[string]any{"active": "yes"})
	wantIs(t, err, property.ErrInvalidDefault, "bad initial value")

	_, err = New(ts.toggle, map[string]any{"colour": "red"})
	wantIs(t, err, property.ErrUnknownProperty, "unknown initial property")

	inst := mustNew(t, ts.toggle, map[string]any{"active": true}, WithID("t1"))
	if inst.ID() != "t1" {
		t.Errorf("id = %q", inst.ID())
	}
	if !inst.IsA("Base") {
		t.Error("Toggle is not a Base")
	}
	if !inst.IsSet("active") || inst.IsSet("label") {
		t.Error("IsSet should report only explicitly stored values")
	}
}

func TestGetResolvesDefaultsLazily(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)

	if label := get(t, inst, "label"); label != "Toggle" {
		t.Errorf("label = %v, want Toggle", label)
	}
	if again := get(t, inst, "label"); again != "Toggle" {
		t.Errorf("second read = %v", again)
	}

	_, err := inst.Get("missing")
	wantIs(t, err, property.ErrUnknownProperty, "Get(missing)")

	want := map[string]any{"label": "Toggle", "width": nil, "callback": nil, "active": false}
	if got := inst.Values(); !reflect.DeepEqual(got, want) {
		t.Errorf("Values = %v, want %v", got, want)
	}
}

func TestSetNotifiesInRegistrationOrder(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)

	type call struct {
		who      int
		attr     string
		old, new any
	}
	var calls []call
	for n := 1; n <= 3; n++ {
		if _, err := inst.OnChange("label", func(attr string, old, new any) error {
			calls = append(calls, call{n, attr, old, new})
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	mustSet(t, inst, "label", "On")
	want := []call{
		{1, "label", "Toggle", "On"},
		{2, "label", "Toggle", "On"},
		{3, "label", "Toggle", "On"},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}

	calls = nil
	mustSet(t, inst, "label", "On")
	if len(calls) != 3 {
		t.Errorf("equal write notified %d callbacks, want 3", len(calls))
	}
}

func TestSetRejectsInvalidValues(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)

	called := false
	if _, err := inst.OnChange("active", func(string, any, any) error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}

	wantIs(t, inst.Set("active", "true"), property.ErrTypeMismatch, "string into Bool")
	if called {
		t.Error("callback ran for a rejected write")
	}
	if v := get(t, inst, "active"); v != false {
		t.Errorf("active = %v after rejected write", v)
	}

	wantIs(t, inst.Set("colour", "red"), property.ErrUnknownProperty, "Set(colour)")

	_, err := inst.OnChange("colour", func(string, any, any) error { return nil })
	wantIs(t, err, property.ErrUnknownProperty, "OnChange(colour)")
}

func TestInstanceValuedProperty(t *testing.T) {
	ts := declare(t)
	script := mustNew(t, ts.script, map[string]any{"code": "alert(1)"})
	inst := mustNew(t, ts.toggle, map[string]any{"callback": script})

	other := mustNew(t, ts.toggle, nil)
	wantIs(t, inst.Set("callback", other), property.ErrTypeMismatch, "Toggle as Script")
	if err := inst.Set("callback", nil); err != nil {
		t.Errorf("clearing callback: %v", err)
	}
}

func TestCallbackErrorAbortsDispatch(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)

	boom := errors.New("boom")
	var ran []string
	_, _ = inst.BindLocal("active", func(Event) error { ran = append(ran, "a"); return nil })
	_, _ = inst.BindLocal("active", func(Event) error { ran = append(ran, "b"); return boom })
	_, _ = inst.BindLocal("active", func(Event) error { ran = append(ran, "c"); return nil })

	wantIs(t, inst.Set("active", true), boom, "failing callback")
	if !reflect.DeepEqual(ran, []string{"a", "b"}) {
		t.Errorf("ran %v, want a then b", ran)
	}
	if v := get(t, inst, "active"); v != true {
		t.Errorf("active = %v, value is stored before callbacks run", v)
	}
}

func TestReentrantSet(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)

	if _, err := inst.OnChange("active", func(_ string, _, new any) error {
		if new.(bool) {
			return inst.Set("label", "Active")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	var labels []any
	if _, err := inst.OnChange("label", func(_ string, _, new any) error {
		labels = append(labels, new)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	mustSet(t, inst, "active", true)
	if !reflect.DeepEqual(labels, []any{"Active"}) {
		t.Errorf("label callbacks saw %v", labels)
	}
}

func TestRegistrationsDuringDispatchApplyNextTime(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)

	var ran []string
	var second RegistrationID
	_, _ = inst.BindLocal("active", func(Event) error {
		ran = append(ran, "first")
		inst.Remove(second)
		_, _ = inst.BindLocal("active", func(Event) error { ran = append(ran, "late"); return nil })
		return nil
	})
	second, _ = inst.BindLocal("active", func(Event) error { ran = append(ran, "second"); return nil })

	mustSet(t, inst, "active", true)
	if !reflect.DeepEqual(ran, []string{"first", "second"}) {
		t.Errorf("first dispatch ran %v", ran)
	}

	ran = nil
	mustSet(t, inst, "active", false)
	if !reflect.DeepEqual(ran, []string{"first", "late"}) {
		t.Errorf("second dispatch ran %v", ran)
	}
}

func TestRemoteDispatch(t *testing.T) {
	ts := declare(t)
	rec := &remote.Recorder{}
	inst := mustNew(t, ts.toggle, nil, WithExecutor(rec), WithID("t1"))

	var order []string
	_, _ = inst.BindLocal("active", func(Event) error { order = append(order, "local"); return nil })
	if _, err := inst.JSOnChange("active", "console.log(cb_obj.active)"); err != nil {
		t.Fatal(err)
	}
	if _, err := inst.JSOnEvent("button_click", "alert('hi')"); err != nil {
		t.Fatal(err)
	}

	mustSet(t, inst, "active", true)
	if err := inst.Fire("button_click", map[string]any{"model": "t1"}); err != nil {
		t.Fatalf("Fire: %v", err)
	}

	invs := rec.Invocations()
	if len(invs) != 2 {
		t.Fatalf("invocations = %d, want 2", len(invs))
	}
	want := remote.Invocation{
		Model: "t1", Type: "Toggle", Event: "active",
		Handler: "console.log(cb_obj.active)",
		Payload: remote.Change{Attr: "active", Old: false, New: true},
	}
	if !reflect.DeepEqual(invs[0], want) {
		t.Errorf("change invocation = %+v, want %+v", invs[0], want)
	}
	if invs[1].Event != "button_click" || !reflect.DeepEqual(invs[1].Payload, map[string]any{"model": "t1"}) {
		t.Errorf("event invocation = %+v", invs[1])
	}
	if !reflect.DeepEqual(order, []string{"local"}) {
		t.Errorf("local callbacks = %v", order)
	}

	inst.SetExecutor(nil)
	mustSet(t, inst, "active", false)
	if n := len(rec.Invocations()); n != 2 {
		t.Errorf("detached instance delivered remotely: %d invocations", n)
	}
}

func TestRemoteDeliveryErrorPropagates(t *testing.T) {
	ts := declare(t)
	failing := remote.ExecutorFunc(func(remote.Invocation) error { return remote.ErrSlowClient })
	inst := mustNew(t, ts.toggle, nil, WithExecutor(failing))
	_, _ = inst.JSOnChange("active", "x()")
	wantIs(t, inst.Set("active", true), remote.ErrSlowClient, "slow client")
}

func TestFire(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)

	var got []any
	if _, err := inst.OnEvent("button_click", func(p any) error { got = append(got, p); return nil }); err != nil {
		t.Fatal(err)
	}
	if err := inst.Fire("button_click", "payload"); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if err := inst.Fire("unbound", nil); err != nil {
		t.Fatalf("Fire(unbound): %v", err)
	}
	if !reflect.DeepEqual(got, []any{"payload"}) {
		t.Errorf("event payloads = %v", got)
	}

	wantIs(t, inst.Fire("active", true), ErrReservedKey, "Fire on a property key")
}

func TestRegisterValidation(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)

	bad := []struct {
		name   string
		key    string
		target Target
		local  Callback
		code   string
	}{
		{"empty key", "", Local, func(Event) error { return nil }, ""},
		{"local without fn", "active", Local, nil, ""},
		{"remote without code", "active", Remote, nil, ""},
		{"unknown target", "active", Target(7), nil, "x"},
	}
	for _, c := range bad {
		if _, err := inst.Register(c.key, c.target, c.local, c.code); err == nil {
			t.Errorf("%s accepted", c.name)
		}
	}

	id, err := inst.BindRemote("active", "x()")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := inst.BindRemote("active", "x()"); err != nil {
		t.Fatal(err)
	}
	if n := len(inst.Registrations("active")); n != 2 {
		t.Errorf("registrations = %d, duplicates are kept", n)
	}
	if !inst.Remove(id) || inst.Remove(id) {
		t.Error("Remove should succeed once")
	}
	if n := len(inst.Registrations("active")); n != 1 {
		t.Errorf("registrations after remove = %d", n)
	}
}

func TestDestroy(t *testing.T) {
	ts := declare(t)
	inst := mustNew(t, ts.toggle, nil)
	_, _ = inst.OnChange("active", func(string, any, any) error { return nil })

	inst.Destroy()
	if !inst.Destroyed() {
		t.Fatal("not marked destroyed")
	}
	wantIs(t, inst.Set("active", true), ErrDestroyed, "Set")
	wantIs(t, inst.Fire("button_click", nil), ErrDestroyed, "Fire")
	_, err := inst.Get("active")
	wantIs(t, err, ErrDestroyed, "Get")
	_, err = inst.BindRemote("active", "x()")
	wantIs(t, err, ErrDestroyed, "BindRemote")
}

func TestSnapshot(t *testing.T) {
	ts := declare(t)
	script := mustNew(t, ts.script, nil, WithID("s1"))
	inst := mustNew(t, ts.toggle, map[string]any{"callback": script}, WithID("t1"))
	_, _ = inst.JSOnChange("active", "a()")
	_, _ = inst.JSOnEvent("button_click", "b()")
	_, _ = inst.OnChange("label", func(string, any, any) error { return nil })

	snap := inst.Snapshot()
	if want := map[string][]string{"active": {"a()"}}; !reflect.DeepEqual(snap.JSPropertyCallbacks, want) {
		t.Errorf("property callbacks = %v", snap.JSPropertyCallbacks)
	}
	if want := map[string][]string{"button_click": {"b()"}}; !reflect.DeepEqual(snap.JSEventCallbacks, want) {
		t.Errorf("event callbacks = %v", snap.JSEventCallbacks)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Attributes map[string]any `json:"attributes"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if want := map[string]any{"id": "s1", "type": "Script"}; !reflect.DeepEqual(decoded.Attributes["callback"], want) {
		t.Errorf("callback attr = %v, want reference %v", decoded.Attributes["callback"], want)
	}
	if decoded.Attributes["label"] != "Toggle" {
		t.Errorf("label attr = %v", decoded.Attributes["label"])
	}
}

func TestTargetString(t *testing.T) {
	for target, want := range map[Target]string{Local: "local", Remote: "remote", Target(9): "target(9)"} {
		if got := target.String(); got != want {
			t.Errorf("Target(%d).String() = %q, want %q", int(target), got, want)
		}
	}
}
