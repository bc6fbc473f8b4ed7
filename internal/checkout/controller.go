// Package checkout drives the three-step checkout flow of one session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/southsidewear/storefront/internal/cart"
	"github.com/southsidewear/storefront/internal/domain"
)

// Step is a position in the checkout flow.
type Step int

const (
	StepCart Step = iota
	StepShipping
	StepPayment
)

func (s Step) String() string {
	switch s {
	case StepCart:
		return "cart"
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	for _, step := range []Step{StepCart, StepShipping, StepPayment} {
		if step.String() == string(text) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("unknown checkout step %q", text)
}

var (
	ErrNoNextStep    = errors.New("already at the last checkout step")
	ErrNotAtPayment  = errors.New("payment is only possible from the payment step")
	ErrUnknownField  = errors.New("unknown shipping field")
	ErrSubmitPending = errors.New("a payment submission is already in progress")
)

// Submitter turns a finalized cart and shipping data into a provider redirect.
type Submitter interface {
	Submit(ctx context.Context, items []domain.CartItem, shipping domain.ShippingInfo) (*domain.Submission, error)
}

// Controller owns the current step and the shipping data captured so far.
// Transitions move one step at a time in either direction.
type Controller struct {
	mu         sync.Mutex
	step       Step
	shipping   domain.ShippingInfo
	submitting bool

	cart      *cart.Store
	submitter Submitter
}

func NewController(c *cart.Store, submitter Submitter) *Controller {
	return &Controller{
		step:      StepCart,
		cart:      c,
		submitter: submitter,
	}
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) Shipping() domain.ShippingInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shipping
}

// SetField records one shipping field as the buyer types it.
func (c *Controller) SetField(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shipping.Set(field, value) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Next advances one step. Leaving the cart needs at least one item; leaving
// shipping needs every field. A blocked transition leaves the step unchanged
// and returns a *domain.ValidationError.
func (c *Controller) Next() (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.step {
	case StepCart:
		if c.cart.Len() == 0 {
			return c.step, domain.ErrEmptyCart
		}
	case StepShipping:
		if err := c.shipping.Validate(); err != nil {
			return c.step, err
		}
	case StepPayment:
		return c.step, ErrNoNextStep
	}

	c.step++
	return c.step, nil
}

// Back moves one step backwards. It never fails; at the cart step it stays.
func (c *Controller) Back() Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step > StepCart {
		c.step--
	}
	return c.step
}

// Pay submits the order from the payment step. The lock is not held during
// the provider round trip, so a second Pay while one is running is refused.
func (c *Controller) Pay(ctx context.Context) (*domain.Submission, error) {
	c.mu.Lock()
	if c.step != StepPayment {
		c.mu.Unlock()
		return nil, ErrNotAtPayment
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitPending
	}
	items := c.cart.Items()
	if len(items) == 0 {
		c.mu.Unlock()
		return nil, domain.ErrEmptyCart
	}
	shipping := c.shipping
	if err := shipping.Validate(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.submitting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	return c.submitter.Submit(ctx, items, shipping)
}
