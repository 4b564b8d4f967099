package dom

import (
	"fmt"

	"github.com/dop251/goja"
)

// Component is a loaded component instance
type Component struct {
	h         *Harness
	lifecycle *goja.Object
	root      *goja.Object
	updates   [][]string
}

// trackUpdates replaces the instance's update method with one that records
// the names it receives. The dispatcher calls through the same object, so
// reactive updates are recorded too.
func (c *Component) trackUpdates() error {
	update, ok := goja.AssertFunction(c.lifecycle.Get("update"))
	if !ok {
		return fmt.Errorf("component has no update method")
	}

	return c.lifecycle.Set("update", func(call goja.FunctionCall) goja.Value {
		names := exportStrings(call.Argument(0))
		c.updates = append(c.updates, names)
		c.h.logf("update %v", names)

		v, err := update(c.lifecycle, call.Arguments...)
		if err != nil {
			if ex, ok := err.(*goja.Exception); ok {
				panic(ex.Value())
			}
			panic(c.h.vm.NewGoError(err))
		}
		return v
	})
}

// Mount creates a host element and calls create on it
func (c *Component) Mount() error {
	_, err := c.h.run(func() (goja.Value, error) {
		root, err := c.h.vm.RunString(`document.createElement("main")`)
		if err != nil {
			return nil, err
		}
		c.root = root.ToObject(c.h.vm)
		return c.call("create", c.root)
	})
	return err
}

// Update calls update with the given binding names
func (c *Component) Update(names ...string) error {
	items := make([]interface{}, len(names))
	for i, name := range names {
		items[i] = name
	}
	_, err := c.h.run(func() (goja.Value, error) {
		return c.call("update", c.h.vm.NewArray(items...))
	})
	return err
}

// Destroy calls destroy
func (c *Component) Destroy() error {
	_, err := c.h.run(func() (goja.Value, error) {
		return c.call("destroy")
	})
	return err
}

func (c *Component) call(method string, args ...goja.Value) (goja.Value, error) {
	fn, ok := goja.AssertFunction(c.lifecycle.Get(method))
	if !ok {
		return nil, fmt.Errorf("component has no %s method", method)
	}
	return fn(c.lifecycle, args...)
}

// Updates returns the name lists passed to update so far, including the
// calls made by the component itself
func (c *Component) Updates() [][]string {
	out := make([][]string, len(c.updates))
	copy(out, c.updates)
	return out
}

// ResetUpdates forgets the recorded update calls
func (c *Component) ResetUpdates() {
	c.updates = nil
}

// HTML serializes the host element's children
func (c *Component) HTML() string {
	if c.root == nil {
		return ""
	}
	return RenderChildren(c.root)
}

// Dispatch fires an event on the index-th element with the given tag, in
// document order
func (c *Component) Dispatch(tag string, index int, eventType string) error {
	if c.root == nil {
		return fmt.Errorf("component is not mounted")
	}
	elements := FindAll(c.root, tag)
	if index >= len(elements) {
		return fmt.Errorf("no <%s> at index %d (found %d)", tag, index, len(elements))
	}
	target := elements[index]

	_, err := c.h.run(func() (goja.Value, error) {
		newEvent, ok := goja.AssertFunction(c.h.vm.Get("$$event"))
		if !ok {
			return nil, fmt.Errorf("DOM shim is not installed")
		}
		event, err := newEvent(goja.Undefined(), c.h.vm.ToValue(eventType))
		if err != nil {
			return nil, err
		}
		dispatch, ok := goja.AssertFunction(target.Get("dispatchEvent"))
		if !ok {
			return nil, fmt.Errorf("<%s> cannot dispatch events", tag)
		}
		return dispatch(target, event)
	})
	return err
}

// Click dispatches a click on the index-th element with the given tag
func (c *Component) Click(tag string, index int) error {
	return c.Dispatch(tag, index, "click")
}

// Element is a handle on a node of a component. It stays valid after the
// node is detached.
type Element struct {
	h    *Harness
	tag  string
	node *goja.Object
}

// Element returns the index-th element with the given tag, in document order
func (c *Component) Element(tag string, index int) (*Element, error) {
	if c.root == nil {
		return nil, fmt.Errorf("component is not mounted")
	}
	elements := FindAll(c.root, tag)
	if index >= len(elements) {
		return nil, fmt.Errorf("no <%s> at index %d (found %d)", tag, index, len(elements))
	}
	return &Element{h: c.h, tag: tag, node: elements[index]}, nil
}

// Attached reports whether the element still has a parent
func (e *Element) Attached() bool {
	parent := e.node.Get("parentNode")
	return parent != nil && !goja.IsNull(parent) && !goja.IsUndefined(parent)
}

// Listeners counts the element's listeners for eventType
func (e *Element) Listeners(eventType string) (int, error) {
	v, err := e.h.run(func() (goja.Value, error) {
		count, ok := goja.AssertFunction(e.node.Get("listenerCount"))
		if !ok {
			return nil, fmt.Errorf("<%s> does not track listeners", e.tag)
		}
		return count(e.node, e.h.vm.ToValue(eventType))
	})
	if err != nil {
		return 0, err
	}
	return int(v.ToInteger()), nil
}

// Listeners counts the listeners for eventType on the index-th element with
// the given tag
func (c *Component) Listeners(tag string, index int, eventType string) (int, error) {
	el, err := c.Element(tag, index)
	if err != nil {
		return 0, err
	}
	return el.Listeners(eventType)
}

func exportStrings(v goja.Value) []string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch items := v.Export().(type) {
	case []string:
		out := make([]string, len(items))
		copy(out, items)
		return out
	case []interface{}:
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = fmt.Sprint(item)
		}
		return out
	}
	return nil
}
