package talim

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/uzbek-talim/talim/api"
	"github.com/uzbek-talim/talim/attempt"
)

// submitAnswersRequest carries the selected option IDs keyed by question
// ID, both as strings on the wire.
type submitAnswersRequest struct {
	Answers map[string][]string `json:"answers"`
}

// Tests lists the tests of a course. A zero courseID lists every test
// visible to the signed-in role.
func (c *Client) Tests(ctx context.Context, courseID int) (api.Page[Test], error) {
	if c == nil || c.gateway == nil {
		return api.Page[Test]{}, ErrClientNotReady
	}

	query := url.Values{}
	if courseID > 0 {
		query.Set("course_id", strconv.Itoa(courseID))
	}
	body, err := c.gateway.GetRaw(c.requestContext(ctx), "/tests", query)
	if err != nil {
		return api.Page[Test]{}, mapAPIError(err)
	}
	page, err := api.DecodePage[Test](body)
	if err != nil {
		return api.Page[Test]{}, err
	}
	return page, nil
}

// Test fetches one test with its questions. Gated tests require the access
// key their teacher configured; fetching one without it reports
// ErrAccessKeyRequired.
func (c *Client) Test(ctx context.Context, testID int, accessKey string) (*Test, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}

	query := url.Values{}
	if accessKey != "" {
		query.Set("access_key", accessKey)
	}

	var test Test
	err := c.gateway.Get(c.requestContext(ctx), "/tests/"+strconv.Itoa(testID), query, &test)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == 403 && accessKey == "" {
			return nil, errors.Join(ErrAccessKeyRequired, err)
		}
		return nil, mapAPIError(err)
	}
	return &test, nil
}

// StartAttempt begins (or resumes) an attempt at a test. A fresh start is
// acknowledged by the backend before the timer anchors; a persisted timer
// for the same test resumes with whatever time is left of its original
// deadline, and an already-expired one is submitted immediately. The
// returned session accepts answers, drives the countdown, and delivers the
// submission exactly once.
func (c *Client) StartAttempt(ctx context.Context, test *Test) (*attempt.Session, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if test == nil || test.ID <= 0 || test.DurationMinutes <= 0 {
		return nil, validationError(errors.New("test with a positive duration required"))
	}

	sess, err := attempt.NewSession(attempt.Config{
		TestID:          test.ID,
		DurationMinutes: test.DurationMinutes,
		Records:         c.records,
		Start:           c.acknowledgeStart,
		Submit:          c.submitAnswers,
	})
	if err != nil {
		return nil, err
	}

	if err := sess.Resume(c.requestContext(ctx)); err != nil {
		c.emitAudit(ctx, auditEventTestStarted, false, "", err, func() map[string]string {
			return map[string]string{"test_id": strconv.Itoa(test.ID)}
		})
		return nil, err
	}

	switch sess.State() {
	case attempt.Expired:
		// The stored deadline had already passed; the answers went out
		// during Resume and there is nothing left to run.
		c.metricInc(MetricTestExpired)
		c.emitAudit(ctx, auditEventTestExpired, true, "", nil, func() map[string]string {
			return map[string]string{"test_id": strconv.Itoa(test.ID)}
		})
	default:
		c.metricInc(MetricTestStarted)
		c.emitAudit(ctx, auditEventTestStarted, true, "", nil, func() map[string]string {
			return map[string]string{"test_id": strconv.Itoa(test.ID)}
		})
	}

	return sess, nil
}

// acknowledgeStart tells the backend an attempt is beginning. The server
// decides whether this is a fresh attempt or a retry of an open one.
func (c *Client) acknowledgeStart(ctx context.Context, testID int) error {
	if err := c.gateway.Post(ctx, "/tests/"+strconv.Itoa(testID)+"/start", nil, nil); err != nil {
		return mapAPIError(err)
	}
	return nil
}

// submitAnswers delivers an attempt's answers. The attempt session
// guarantees at most one in-flight call per attempt.
func (c *Client) submitAnswers(ctx context.Context, testID int, answers map[int][]int) error {
	req := submitAnswersRequest{Answers: make(map[string][]string, len(answers))}
	for questionID, optionIDs := range answers {
		selected := make([]string, 0, len(optionIDs))
		for _, optionID := range optionIDs {
			selected = append(selected, strconv.Itoa(optionID))
		}
		req.Answers[strconv.Itoa(questionID)] = selected
	}

	if err := c.gateway.Post(ctx, "/tests/"+strconv.Itoa(testID)+"/submit", req, nil); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventTestSubmitFailed, false, "", err, func() map[string]string {
			return map[string]string{"test_id": strconv.Itoa(testID)}
		})
		return err
	}

	c.metricInc(MetricTestSubmitted)
	c.emitAudit(ctx, auditEventTestSubmitted, true, "", nil, func() map[string]string {
		return map[string]string{"test_id": strconv.Itoa(testID)}
	})
	return nil
}

// TestResult fetches the graded outcome of the signed-in user's attempt.
func (c *Client) TestResult(ctx context.Context, testID int) (*TestResult, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}

	var result TestResult
	if err := c.gateway.Get(c.requestContext(ctx), "/tests/"+strconv.Itoa(testID)+"/result", nil, &result); err != nil {
		return nil, mapAPIError(err)
	}
	return &result, nil
}

// CreateTest publishes a new test. Teacher and admin roles only; the
// backend enforces authorization.
func (c *Client) CreateTest(ctx context.Context, req CreateTestRequest) (*Test, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	ctx = c.requestContext(ctx)
	var created Test
	if err := c.gateway.Post(ctx, "/tests", req, &created); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventTestCreated, false, "", err, nil)
		return nil, err
	}
	c.emitAudit(ctx, auditEventTestCreated, true, "", nil, func() map[string]string {
		return map[string]string{"test_id": strconv.Itoa(created.ID)}
	})
	return &created, nil
}

// UpdateTest replaces a test definition.
func (c *Client) UpdateTest(ctx context.Context, testID int, req CreateTestRequest) (*Test, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	var updated Test
	if err := c.gateway.Put(c.requestContext(ctx), "/tests/"+strconv.Itoa(testID), req, &updated); err != nil {
		return nil, mapAPIError(err)
	}
	return &updated, nil
}

// AddQuestion appends a question to an existing test.
func (c *Client) AddQuestion(ctx context.Context, testID int, req CreateQuestionRequest) (*Question, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	var question Question
	path := "/tests/" + strconv.Itoa(testID) + "/questions"
	if err := c.gateway.Post(c.requestContext(ctx), path, req, &question); err != nil {
		return nil, mapAPIError(err)
	}
	return &question, nil
}

// DeleteTest removes a test.
func (c *Client) DeleteTest(ctx context.Context, testID int) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}

	ctx = c.requestContext(ctx)
	if err := c.gateway.Delete(ctx, "/tests/"+strconv.Itoa(testID)); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventTestDeleted, false, "", err, nil)
		return err
	}
	c.emitAudit(ctx, auditEventTestDeleted, true, "", nil, func() map[string]string {
		return map[string]string{"test_id": strconv.Itoa(testID)}
	})
	return nil
}
