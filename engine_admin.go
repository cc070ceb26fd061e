package talim

import (
	"context"
	"net/url"
	"strconv"

	"github.com/uzbek-talim/talim/api"
)

// AdminUsers lists platform accounts. Admin roles only; the backend
// enforces authorization and the client surfaces 403 as ErrForbidden.
func (c *Client) AdminUsers(ctx context.Context, page, pageSize int) (api.Page[UserAccount], error) {
	if c == nil || c.gateway == nil {
		return api.Page[UserAccount]{}, ErrClientNotReady
	}

	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	body, err := c.gateway.GetRaw(c.requestContext(ctx), "/admin/users", query)
	if err != nil {
		return api.Page[UserAccount]{}, mapAPIError(err)
	}
	result, err := api.DecodePage[UserAccount](body)
	if err != nil {
		return api.Page[UserAccount]{}, err
	}
	return result, nil
}

// AdminUser fetches one account.
func (c *Client) AdminUser(ctx context.Context, userID string) (*UserAccount, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}

	var account UserAccount
	if err := c.gateway.Get(c.requestContext(ctx), "/admin/users/"+userID, nil, &account); err != nil {
		return nil, mapAPIError(err)
	}
	return &account, nil
}

// CreateUser provisions an account with a fixed role.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*UserAccount, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	var account UserAccount
	if err := c.gateway.Post(c.requestContext(ctx), "/admin/users", req, &account); err != nil {
		return nil, mapAPIError(err)
	}
	return &account, nil
}

// UpdateUser patches an account.
func (c *Client) UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*UserAccount, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	var account UserAccount
	if err := c.gateway.Patch(c.requestContext(ctx), "/admin/users/"+userID, req, &account); err != nil {
		return nil, mapAPIError(err)
	}
	return &account, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}

	ctx = c.requestContext(ctx)
	if err := c.gateway.Delete(ctx, "/admin/users/"+userID); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventUserDeleted, false, userID, err, nil)
		return err
	}
	c.emitAudit(ctx, auditEventUserDeleted, true, userID, nil, nil)
	return nil
}

// AdminCourses lists every course, published or not.
func (c *Client) AdminCourses(ctx context.Context) (api.Page[Course], error) {
	if c == nil || c.gateway == nil {
		return api.Page[Course]{}, ErrClientNotReady
	}

	body, err := c.gateway.GetRaw(c.requestContext(ctx), "/admin/courses", nil)
	if err != nil {
		return api.Page[Course]{}, mapAPIError(err)
	}
	result, err := api.DecodePage[Course](body)
	if err != nil {
		return api.Page[Course]{}, err
	}
	return result, nil
}

// PublishCourse flips a course to published.
func (c *Client) PublishCourse(ctx context.Context, courseID int) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}

	ctx = c.requestContext(ctx)
	path := "/admin/courses/" + strconv.Itoa(courseID) + "/publish"
	if err := c.gateway.Post(ctx, path, nil, nil); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventCoursePublished, false, "", err, nil)
		return err
	}
	c.emitAudit(ctx, auditEventCoursePublished, true, "", nil, func() map[string]string {
		return map[string]string{"course_id": strconv.Itoa(courseID)}
	})
	return nil
}

// DeleteCourse removes a course.
func (c *Client) DeleteCourse(ctx context.Context, courseID int) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}

	ctx = c.requestContext(ctx)
	if err := c.gateway.Delete(ctx, "/admin/courses/"+strconv.Itoa(courseID)); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventCourseDeleted, false, "", err, nil)
		return err
	}
	c.emitAudit(ctx, auditEventCourseDeleted, true, "", nil, func() map[string]string {
		return map[string]string{"course_id": strconv.Itoa(courseID)}
	})
	return nil
}

// Payments lists tuition payments, optionally filtered by status.
func (c *Client) Payments(ctx context.Context, status string) (api.Page[Payment], error) {
	if c == nil || c.gateway == nil {
		return api.Page[Payment]{}, ErrClientNotReady
	}

	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	body, err := c.gateway.GetRaw(c.requestContext(ctx), "/admin/payments", query)
	if err != nil {
		return api.Page[Payment]{}, mapAPIError(err)
	}
	result, err := api.DecodePage[Payment](body)
	if err != nil {
		return api.Page[Payment]{}, err
	}
	return result, nil
}

// Payment fetches one payment.
func (c *Client) Payment(ctx context.Context, paymentID int) (*Payment, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}

	var payment Payment
	path := "/admin/payments/" + strconv.Itoa(paymentID)
	if err := c.gateway.Get(c.requestContext(ctx), path, nil, &payment); err != nil {
		return nil, mapAPIError(err)
	}
	return &payment, nil
}

// CreatePayment records a payment awaiting manager confirmation. Unlike
// the rest of this file it is a student-side call.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	var payment Payment
	if err := c.gateway.Post(c.requestContext(ctx), "/payments", req, &payment); err != nil {
		return nil, mapAPIError(err)
	}
	return &payment, nil
}

// ConfirmPayment marks a pending payment as received.
func (c *Client) ConfirmPayment(ctx context.Context, paymentID int) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}

	ctx = c.requestContext(ctx)
	path := "/admin/payments/" + strconv.Itoa(paymentID) + "/confirm"
	if err := c.gateway.Post(ctx, path, nil, nil); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventPaymentConfirmed, false, "", err, nil)
		return err
	}
	c.emitAudit(ctx, auditEventPaymentConfirmed, true, "", nil, func() map[string]string {
		return map[string]string{"payment_id": strconv.Itoa(paymentID)}
	})
	return nil
}
