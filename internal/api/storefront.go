package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/session"
	"storefront/internal/store"
)

func (h *Handler) home(c *gin.Context) {
	page, err := h.svc.Catalog.Home(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) listProducts(c *gin.Context) {
	h.productListing(c, "")
}

func (h *Handler) listCategoryProducts(c *gin.Context) {
	h.productListing(c, c.Param("slug"))
}

func (h *Handler) productListing(c *gin.Context, categorySlug string) {
	var page store.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		bindFailed(c, err)
		return
	}

	listing, err := h.svc.Catalog.ListProducts(c.Request.Context(), categorySlug, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) productDetail(c *gin.Context) {
	product, err := h.svc.Catalog.ProductDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) viewCart(c *gin.Context) {
	view, err := h.svc.Cart.View(c.Request.Context(), session.ID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// addToCartRequest is the cart add form. Quantity defaults to 1 and
// override to true, so posting the product page form sets the quantity.
type addToCartRequest struct {
	Quantity *int  `json:"quantity" form:"quantity" binding:"omitempty,min=1,max=1000"`
	Override *bool `json:"override" form:"override"`
}

func (h *Handler) addToCart(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	var req addToCartRequest
	if c.Request.ContentLength != 0 || c.Request.URL.RawQuery != "" {
		if err := c.ShouldBind(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}
	quantity, override := 1, true
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if req.Override != nil {
		override = *req.Override
	}

	view, err := h.svc.Cart.Add(c.Request.Context(), session.ID(c), productID, quantity, override)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) removeFromCart(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	view, err := h.svc.Cart.Remove(c.Request.Context(), session.ID(c), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listWishlist(c *gin.Context) {
	items, err := h.svc.Wishlist.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) toggleWishlist(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	added, err := h.svc.Wishlist.Toggle(c.Request.Context(), currentUserID(c), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "in_wishlist": added})
}

func (h *Handler) removeFromWishlist(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	if err := h.svc.Wishlist.Remove(c.Request.Context(), currentUserID(c), productID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "in_wishlist": false})
}
