package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"solarshop/internal/auth"
	"solarshop/internal/domain/orders"
	"solarshop/internal/params"
	"solarshop/internal/session"

	"github.com/go-chi/chi/v5"
)

type addItemPayload struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type updateQuantityPayload struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type applyCouponPayload struct {
	Code string `json:"code" validate:"required,couponcode"`
}

type sidebarPayload struct {
	Open *bool `json:"open" validate:"required"`
}

type checkoutResponse struct {
	Order *orders.Order `json:"order"`
	Cart  session.View  `json:"cart"`
}

// cartSession returns the session of the company the request acts for. It
// writes the error response itself when it returns false.
func (app *application) cartSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	company := getCompanyFromContext(r)
	if company == nil {
		app.unauthorizedErrorResponse(w, r, auth.ErrMissingCompany)
		return nil, false
	}

	s, err := app.carts.Get(r.Context(), company.CompanyID, company.CompanyName)
	if err != nil {
		app.cartErrorResponse(w, r, err)
		return nil, false
	}
	return s, true
}

func (app *application) opContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), app.config.cart.operationTimeout)
}

func (app *application) respondView(w http.ResponseWriter, r *http.Request, status int, view session.View, err error) {
	if err != nil {
		app.cartErrorResponse(w, r, err)
		return
	}
	if err := app.jsonResponse(w, status, view); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GetCart godoc
//
//	@Summary		Get partner cart
//	@Description	Returns the company cart with tier pricing, coupons and the order summary
//	@Tags			Partner-Cart
//	@Produce		json
//	@Success		200	{object}	envelope{data=session.View}
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.View(ctx)
	app.respondView(w, r, http.StatusOK, view, err)
}

// AddCartItem godoc
//
//	@Summary		Add product to cart
//	@Description	Adds quantity of a product, merging with an existing line and repricing it against the volume tiers
//	@Tags			Partner-Cart
//	@Accept			json
//	@Produce		json
//	@Param			body	body		addItemPayload	true	"Product and quantity"
//	@Success		201	{object}	envelope{data=session.View}
//	@Failure		400	{object}	error	"Bad Request: invalid payload or rejected by cart rules"
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		404	{object}	error	"Not Found"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/items [post]
func (app *application) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	var in addItemPayload
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.AddItem(ctx, in.ProductID, in.Quantity)
	app.respondView(w, r, http.StatusCreated, view, err)
}

// AddOfferItem godoc
//
//	@Summary		Add product under a partner offer
//	@Description	Adds a product with the partner offer discount stacked on its tier price
//	@Tags			Partner-Cart
//	@Accept			json
//	@Produce		json
//	@Param			offerID	path		string			true	"Partner offer ID"
//	@Param			body	body		addItemPayload	true	"Product and quantity"
//	@Success		201	{object}	envelope{data=session.View}
//	@Failure		400	{object}	error	"Bad Request: invalid payload or rejected by cart rules"
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		404	{object}	error	"Not Found"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/offers/{offerID}/items [post]
func (app *application) addOfferItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	var in addItemPayload
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.AddOfferItem(ctx, chi.URLParam(r, "offerID"), in.ProductID, in.Quantity)
	app.respondView(w, r, http.StatusCreated, view, err)
}

// UpdateCartItem godoc
//
//	@Summary		Update line quantity
//	@Description	Sets the quantity of a cart line; 0 removes the line
//	@Tags			Partner-Cart
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		string				true	"Product ID"
//	@Param			body		body		updateQuantityPayload	true	"New quantity"
//	@Success		200	{object}	envelope{data=session.View}
//	@Failure		400	{object}	error	"Bad Request: invalid payload or rejected by cart rules"
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/items/{productID} [patch]
func (app *application) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	var in updateQuantityPayload
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.UpdateQuantity(ctx, chi.URLParam(r, "productID"), *in.Quantity)
	app.respondView(w, r, http.StatusOK, view, err)
}

// RemoveCartItem godoc
//
//	@Summary		Remove line
//	@Description	Removes a product from the cart; applied coupons stay until the cart is cleared
//	@Tags			Partner-Cart
//	@Produce		json
//	@Param			productID	path	string	true	"Product ID"
//	@Success		200	{object}	envelope{data=session.View}
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/items/{productID} [delete]
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.RemoveItem(ctx, chi.URLParam(r, "productID"))
	app.respondView(w, r, http.StatusOK, view, err)
}

// ClearCart godoc
//
//	@Summary		Clear cart
//	@Description	Removes every line and coupon from the cart
//	@Tags			Partner-Cart
//	@Produce		json
//	@Success		200	{object}	envelope{data=session.View}
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart [delete]
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.Clear(ctx)
	app.respondView(w, r, http.StatusOK, view, err)
}

// ApplyCoupon godoc
//
//	@Summary		Apply coupon
//	@Description	Validates a coupon code against the current subtotal and adds its discount
//	@Tags			Partner-Cart
//	@Accept			json
//	@Produce		json
//	@Param			body	body		applyCouponPayload	true	"Coupon code"
//	@Success		200	{object}	envelope{data=session.View}
//	@Failure		400	{object}	error	"Bad Request: invalid payload or rejected by cart rules"
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		404	{object}	error	"Not Found"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/coupons [post]
func (app *application) applyCouponHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	var in applyCouponPayload
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.ApplyCoupon(ctx, in.Code)
	app.respondView(w, r, http.StatusOK, view, err)
}

// RemoveCoupon godoc
//
//	@Summary		Remove coupon
//	@Description	Removes an applied coupon and subtracts its discount
//	@Tags			Partner-Cart
//	@Produce		json
//	@Param			couponID	path	string	true	"Coupon ID"
//	@Success		200	{object}	envelope{data=session.View}
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/coupons/{couponID} [delete]
func (app *application) removeCouponHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.RemoveCoupon(ctx, chi.URLParam(r, "couponID"))
	app.respondView(w, r, http.StatusOK, view, err)
}

// SyncCart godoc
//
//	@Summary		Sync cart
//	@Description	Re-reads the stored cart; the result is dropped when the cart changed locally during the read
//	@Tags			Partner-Cart
//	@Produce		json
//	@Success		200	{object}	envelope{data=session.View}
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/sync [post]
func (app *application) syncCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.Sync(ctx)
	app.respondView(w, r, http.StatusOK, view, err)
}

// SetCartSidebar godoc
//
//	@Summary		Open or close cart sidebar
//	@Description	Stores whether the cart sidebar is open for the company
//	@Tags			Partner-Cart
//	@Accept			json
//	@Produce		json
//	@Param			body	body		sidebarPayload	true	"Sidebar state"
//	@Success		200	{object}	envelope{data=session.View}
//	@Failure		400	{object}	error	"Bad Request: invalid payload or rejected by cart rules"
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/sidebar [put]
func (app *application) sidebarHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := app.opContext(r)
	defer cancel()

	var in sidebarPayload
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	view, err := s.SetSidebarOpen(ctx, *in.Open)
	app.respondView(w, r, http.StatusOK, view, err)
}

// Checkout godoc
//
//	@Summary		Place order from cart
//	@Description	Creates an order from the cart and empties it in one transaction
//	@Tags			Partner-Cart
//	@Produce		json
//	@Success		201	{object}	envelope{data=checkoutResponse}
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/cart/checkout [post]
func (app *application) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*app.config.cart.operationTimeout)
	defer cancel()

	s, ok := app.cartSession(w, r)
	if !ok {
		return
	}

	order, view, err := s.CompleteOrder(ctx)
	if err != nil {
		app.cartErrorResponse(w, r, err)
		return
	}

	app.logger.Infow("order placed", "company_id", s.CompanyID(), "order_number", order.OrderNumber, "total", order.Total)
	if err := app.jsonResponse(w, http.StatusCreated, checkoutResponse{Order: order, Cart: view}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// GetOrder godoc
//
//	@Summary		Get order
//	@Description	Returns an order of the company with its lines
//	@Tags			Partner-Orders
//	@Produce		json
//	@Param			orderNumber	path	string	true	"Order number"
//	@Success		200	{object}	envelope{data=orders.OrderDetail}
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		404	{object}	error	"Not Found"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/orders/{orderNumber} [get]
func (app *application) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	company := getCompanyFromContext(r)
	if company == nil {
		app.unauthorizedErrorResponse(w, r, auth.ErrMissingCompany)
		return
	}

	detail, err := app.orders.GetDetail(ctx, company.CompanyID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, detail)
}

// ListOrders godoc
//
//	@Summary		List orders
//	@Description	Lists the company orders, newest first
//	@Tags			Partner-Orders
//	@Produce		json
//	@Param			page	query		int		false	"Page number"		default(1)
//	@Param			limit	query		int		false	"Items per page"	default(15)
//	@Success		200	{object}	envelope{data=map[string]any}
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/partners/orders [get]
func (app *application) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	company := getCompanyFromContext(r)
	if company == nil {
		app.unauthorizedErrorResponse(w, r, auth.ErrMissingCompany)
		return
	}

	page := params.ParsePagination(r.URL.Query())
	list, total, err := app.orders.ListByCompany(ctx, company.CompanyID, page.Limit, page.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	page.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": page,
	})
}
