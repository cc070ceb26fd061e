// Package talim is the client engine of the Uzbek Ta'lim learning platform.
//
// It owns everything between the UI and the backend API: the durable
// session (identity plus tokens), the single HTTP gateway with its global
// expired-session policy, route guard decisions, and the timed test attempt
// lifecycle with its exactly-once submission guarantee.
//
// Build a Client with the fluent Builder:
//
//	client, err := talim.New().
//		WithBaseURL("https://api.talim.uz").
//		WithStorageDir(stateDir).
//		WithNavigator(router.Go).
//		Build()
//	if err != nil {
//		// handle
//	}
//	defer client.Close()
//
//	if err := client.Bootstrap(ctx); err != nil {
//		// session resolved unauthenticated
//	}
package talim
