package talim

import (
	"context"
	"net/url"
	"strconv"

	"github.com/uzbek-talim/talim/api"
)

// CourseQuery narrows a catalog listing. Zero values mean no filter.
type CourseQuery struct {
	Search    string
	TeacherID string
	Page      int
	PageSize  int
}

func (q CourseQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.TeacherID != "" {
		v.Set("teacher_id", q.TeacherID)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

// Courses lists the catalog. The backend's list envelopes are normalized
// into a single Page shape.
func (c *Client) Courses(ctx context.Context, query CourseQuery) (api.Page[Course], error) {
	if c == nil || c.gateway == nil {
		return api.Page[Course]{}, ErrClientNotReady
	}

	body, err := c.gateway.GetRaw(c.requestContext(ctx), "/courses", query.values())
	if err != nil {
		return api.Page[Course]{}, mapAPIError(err)
	}
	page, err := api.DecodePage[Course](body)
	if err != nil {
		return api.Page[Course]{}, err
	}
	return page, nil
}

// Course fetches one catalog entry by slug.
func (c *Client) Course(ctx context.Context, slug string) (*Course, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}

	var course Course
	if err := c.gateway.Get(c.requestContext(ctx), "/courses/"+slug, nil, &course); err != nil {
		return nil, mapAPIError(err)
	}
	return &course, nil
}

// CreateCourse creates a course owned by the signed-in teacher.
func (c *Client) CreateCourse(ctx context.Context, req CreateCourseRequest) (*Course, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	ctx = c.requestContext(ctx)
	var course Course
	if err := c.gateway.Post(ctx, "/courses", req, &course); err != nil {
		return nil, mapAPIError(err)
	}
	c.emitAudit(ctx, auditEventCourseCreated, true, c.currentUserID(), nil, func() map[string]string {
		return map[string]string{"slug": course.Slug}
	})
	return &course, nil
}

// UpdateCourse replaces a course definition.
func (c *Client) UpdateCourse(ctx context.Context, courseID int, req CreateCourseRequest) (*Course, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	var course Course
	if err := c.gateway.Put(c.requestContext(ctx), "/courses/"+strconv.Itoa(courseID), req, &course); err != nil {
		return nil, mapAPIError(err)
	}
	return &course, nil
}

// MyCourses lists the courses the signed-in user is enrolled in.
func (c *Client) MyCourses(ctx context.Context) (api.Page[Course], error) {
	if c == nil || c.gateway == nil {
		return api.Page[Course]{}, ErrClientNotReady
	}

	body, err := c.gateway.GetRaw(c.requestContext(ctx), "/courses/my", nil)
	if err != nil {
		return api.Page[Course]{}, mapAPIError(err)
	}
	page, err := api.DecodePage[Course](body)
	if err != nil {
		return api.Page[Course]{}, err
	}
	return page, nil
}
