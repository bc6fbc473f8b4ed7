package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/southsidewear/storefront/internal/cart"
	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/storage"
)

var tee = domain.CartItem{ID: "tee-1", Product: "Classic Tee", Price: 25000, Size: "M"}

func newCart(t *testing.T, items ...domain.CartItem) *cart.Store {
	t.Helper()
	store := cart.NewStore(storage.NewMemoryStorage(), discardLogger())
	for _, item := range items {
		store.Add(context.Background(), item)
	}
	return store
}

func fillShipping(t *testing.T, c *Controller) {
	t.Helper()
	values := map[string]string{
		domain.FieldName:       "Ana Pérez",
		domain.FieldAddress:    "Av. Corrientes 1234",
		domain.FieldCity:       "CABA",
		domain.FieldPostalCode: "1043",
		domain.FieldEmail:      "ana@example.com",
		domain.FieldPhone:      "1155550000",
	}
	for field, v := range values {
		require.NoError(t, c.SetField(field, v))
	}
}

func TestController_StartsAtCart(t *testing.T) {
	c := NewController(newCart(t), &mockSubmitter{})
	assert.Equal(t, StepCart, c.Step())
}

func TestController_EmptyCartBlocksShipping(t *testing.T) {
	c := NewController(newCart(t), &mockSubmitter{})

	step, err := c.Next()

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cart", verr.Field)
	assert.Equal(t, StepCart, step)
	assert.Equal(t, StepCart, c.Step())
}

func TestController_BlankFieldBlocksPayment(t *testing.T) {
	c := NewController(newCart(t, tee), &mockSubmitter{})
	fillShipping(t, c)
	require.NoError(t, c.SetField(domain.FieldCity, "   "))

	step, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, StepShipping, step)

	_, err = c.Next()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.FieldCity, verr.Field)
	assert.Equal(t, StepShipping, c.Step())
}

func TestController_FirstInvalidFieldInFormOrder(t *testing.T) {
	c := NewController(newCart(t, tee), &mockSubmitter{})
	require.NoError(t, c.SetField(domain.FieldEmail, "ana@example.com"))
	_, err := c.Next()
	require.NoError(t, err)

	_, err = c.Next()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.FieldName, verr.Field)
}

func TestController_ForwardAndBack(t *testing.T) {
	c := NewController(newCart(t, tee), &mockSubmitter{})
	fillShipping(t, c)

	_, err := c.Next()
	require.NoError(t, err)
	step, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, StepPayment, step)

	_, err = c.Next()
	assert.ErrorIs(t, err, ErrNoNextStep)
	assert.Equal(t, StepPayment, c.Step())

	assert.Equal(t, StepShipping, c.Back())
	assert.Equal(t, StepCart, c.Back())
	assert.Equal(t, StepCart, c.Back())
}

func TestController_BackIsUnconditional(t *testing.T) {
	store := newCart(t, tee)
	c := NewController(store, &mockSubmitter{})
	fillShipping(t, c)
	_, _ = c.Next()
	_, _ = c.Next()

	store.Remove(context.Background(), 0)
	require.NoError(t, c.SetField(domain.FieldName, ""))

	assert.Equal(t, StepShipping, c.Back())
}

func TestController_SetFieldUnknown(t *testing.T) {
	c := NewController(newCart(t), &mockSubmitter{})
	assert.ErrorIs(t, c.SetField("pais", "AR"), ErrUnknownField)
}

func TestController_SetFieldTrims(t *testing.T) {
	c := NewController(newCart(t), &mockSubmitter{})
	require.NoError(t, c.SetField(domain.FieldEmail, "  ana@example.com "))
	assert.Equal(t, "ana@example.com", c.Shipping().Email)
}

func TestController_PayOutsidePaymentStep(t *testing.T) {
	sub := &mockSubmitter{}
	c := NewController(newCart(t, tee), sub)

	_, err := c.Pay(context.Background())
	assert.ErrorIs(t, err, ErrNotAtPayment)
	assert.Zero(t, sub.calls)
}

func TestController_PaySubmitsCartAndShipping(t *testing.T) {
	sub := &mockSubmitter{result: &domain.Submission{OrderID: "SS-1-2", InitPoint: "https://mp.example/checkout"}}
	c := NewController(newCart(t, tee), sub)
	fillShipping(t, c)
	_, _ = c.Next()
	_, _ = c.Next()

	res, err := c.Pay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://mp.example/checkout", res.InitPoint)
	assert.Equal(t, []domain.CartItem{tee}, sub.items)
	assert.Equal(t, "CABA", sub.shipping.City)
	assert.Equal(t, StepPayment, c.Step())
}

func TestController_PayWithEmptiedCartNeverSubmits(t *testing.T) {
	store := newCart(t, tee)
	sub := &mockSubmitter{}
	c := NewController(store, sub)
	fillShipping(t, c)
	_, _ = c.Next()
	_, _ = c.Next()

	store.Remove(context.Background(), 0)

	_, err := c.Pay(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Zero(t, sub.calls)
}

func TestController_PayPropagatesSubmitError(t *testing.T) {
	sub := &mockSubmitter{err: errors.New("provider down")}
	c := NewController(newCart(t, tee), sub)
	fillShipping(t, c)
	_, _ = c.Next()
	_, _ = c.Next()

	_, err := c.Pay(context.Background())
	assert.EqualError(t, err, "provider down")
	assert.Equal(t, StepPayment, c.Step())
}

func TestController_RejectsConcurrentPay(t *testing.T) {
	sub := &mockSubmitter{block: make(chan struct{}), result: &domain.Submission{OrderID: "SS-1-2"}}
	c := NewController(newCart(t, tee), sub)
	fillShipping(t, c)
	_, _ = c.Next()
	_, _ = c.Next()

	done := make(chan error, 1)
	go func() {
		_, err := c.Pay(context.Background())
		done <- err
	}()

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.submitting
	}, time.Second, 5*time.Millisecond)

	_, err := c.Pay(context.Background())
	assert.ErrorIs(t, err, ErrSubmitPending)

	close(sub.block)
	assert.NoError(t, <-done)
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "cart", StepCart.String())
	assert.Equal(t, "payment", StepPayment.String())
	assert.Equal(t, "step(7)", Step(7).String())
}

func TestStep_TextRoundTrip(t *testing.T) {
	var s Step
	require.NoError(t, s.UnmarshalText([]byte("shipping")))
	assert.Equal(t, StepShipping, s)
	assert.Error(t, s.UnmarshalText([]byte("review")))
}
