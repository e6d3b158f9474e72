package cart

import "github.com/bright-bogota/storefront/internal/observable"

// Drawer tracks whether the cart drawer is shown. It lets any "add to cart"
// trigger reveal the drawer without knowing about the component rendering it.
type Drawer struct {
	open *observable.Value[bool]
}

// NewDrawer returns a closed drawer.
func NewDrawer() *Drawer {
	return &Drawer{open: observable.New(false)}
}

// Open shows the drawer. Repeated calls keep it open and still publish.
func (d *Drawer) Open() { d.open.Set(true) }

// Close hides the drawer.
func (d *Drawer) Close() { d.open.Set(false) }

// Toggle flips the current state.
func (d *Drawer) Toggle() {
	d.open.Update(func(cur bool) (bool, bool) { return !cur, true })
}

// IsOpen reports the current state.
func (d *Drawer) IsOpen() bool { return d.open.Get() }

// Subscribe delivers the current state and then every change.
func (d *Drawer) Subscribe(fn func(bool)) (cancel func()) {
	return d.open.Subscribe(fn)
}
