package vm

import (
	"errors"
	"fmt"

	"github.com/d5/tengo/v2"
)

var (
	ErrNotPrepared = errors.New("vm: context not prepared")
	ErrClosed      = errors.New("vm: context closed")
)

// Context is an execution cursor for one module: prepare a function, push
// parameters, execute. One call at a time; contexts are not safe for
// concurrent use.
type Context struct {
	module   *Module
	fn       string
	args     []tengo.Object
	prepared bool
	closed   bool
}

func NewContext(m *Module) *Context {
	return &Context{module: m}
}

func (c *Context) Module() *Module { return c.module }

// Prepare targets a function for the next Execute. Fails when the module has
// no built program or the function is absent.
func (c *Context) Prepare(fn string) error {
	if c.closed {
		return ErrClosed
	}
	if c.module == nil || !c.module.Built() {
		return ErrNotBuilt
	}
	if !c.module.HasFunction(fn) {
		return fmt.Errorf("%w: %s", ErrNoFunction, fn)
	}
	c.fn = fn
	c.args = c.args[:0]
	c.prepared = true
	return nil
}

func (c *Context) PushInt(v int64) {
	c.args = append(c.args, &tengo.Int{Value: v})
}

func (c *Context) PushBool(v bool) {
	if v {
		c.args = append(c.args, tengo.TrueValue)
	} else {
		c.args = append(c.args, tengo.FalseValue)
	}
}

func (c *Context) PushFloat(v float64) {
	c.args = append(c.args, &tengo.Float{Value: v})
}

func (c *Context) PushString(v string) {
	c.args = append(c.args, &tengo.String{Value: v})
}

// PushObject passes a prebuilt VM value through unchanged.
func (c *Context) PushObject(obj tengo.Object) {
	if obj == nil {
		obj = tengo.UndefinedValue
	}
	c.args = append(c.args, obj)
}

// PushValue converts an arbitrary Go value. Unconvertible values become
// undefined.
func (c *Context) PushValue(v any) {
	obj, err := tengo.FromInterface(v)
	if err != nil {
		obj = tengo.UndefinedValue
	}
	c.args = append(c.args, obj)
}

// Execute runs the prepared call to completion and returns its result. The
// context is releasable afterwards regardless of faults.
func (c *Context) Execute() (tengo.Object, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if !c.prepared {
		return nil, ErrNotPrepared
	}
	fn := c.fn
	args := c.args
	c.prepared = false
	c.fn = ""
	c.args = nil
	return c.module.call(fn, args)
}

// Close releases the context. Further use is an error.
func (c *Context) Close() {
	c.closed = true
	c.prepared = false
	c.args = nil
}
