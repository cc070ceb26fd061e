package talim

import "github.com/uzbek-talim/talim/guard"

// GuardProtected evaluates the protected-route guard against the current
// session and counts denials. Attempted is the path being navigated to; a
// redirect decision carries it so login can send the user back.
func (c *Client) GuardProtected(attempted string) guard.Decision {
	if c == nil || c.guards == nil {
		return guard.Decision{Action: guard.Wait}
	}
	decision := c.guards.Protected(c.store.Snapshot(), attempted)
	if decision.Action == guard.Redirect {
		c.metricInc(MetricGuardRedirect)
	}
	return decision
}

// GuardGuest evaluates the guest-only guard. From is the origin carried by
// an earlier protected-route bounce, or empty.
func (c *Client) GuardGuest(from string) guard.Decision {
	if c == nil || c.guards == nil {
		return guard.Decision{Action: guard.Wait}
	}
	decision := c.guards.Guest(c.store.Snapshot(), from)
	if decision.Action == guard.Redirect {
		c.metricInc(MetricGuardRedirect)
	}
	return decision
}

// GuardAdmin evaluates the admin-only guard.
func (c *Client) GuardAdmin(attempted string) guard.Decision {
	if c == nil || c.guards == nil {
		return guard.Decision{Action: guard.Wait}
	}
	decision := c.guards.Admin(c.store.Snapshot(), attempted)
	if decision.Action == guard.Redirect {
		c.metricInc(MetricGuardRedirect)
	}
	return decision
}
