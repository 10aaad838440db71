/*
Package server exposes recurring event series over a JSON HTTP API.

# Basic Usage

	kv := memory.New()
	svc := series.NewService(series.NewDocumentStore(kv), recurrence.NewEngine())

	users := authmemory.New()
	users.AddUser(authmemory.User{Username: "alice", Password: "secret"})

	srv, err := server.New(svc,
		server.WithBasePath("/api"),
		server.WithAuthenticator(users, "calseries"))
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", srv)

# Routes

Every route lives under the base path and requires Basic authentication,
except the health check:
  - GET /healthz - liveness probe
  - POST /preview - expand a rule without storing anything
  - POST /series - create a series from JSON or a text/calendar VEVENT with an RRULE
  - GET /series/{id} - the series record
  - GET /series/{id}/occurrences - its occurrences ordered by start
  - GET /series/{id}/calendar.ics - iCalendar export; ?format=rrule yields one recurring VEVENT
  - POST /series/{id}/rematerialize - regenerate and rewrite the occurrences
  - DELETE /series/{id} - delete the series and its occurrences
  - POST /events, GET /events, GET /events/{id}, DELETE /events/{id} - standalone events
  - POST /events/{id}/reports - file a moderation report

A create response carries the X-Generation-Truncated header when the safety
cap cut the series short. Read-only users may only issue GET, HEAD and OPTIONS requests.

# Errors

Failures are returned as {"error": "..."} with a status derived from the
cause: 400 for invalid rules and bodies, 403 for ownership violations, 404
for unknown records, 502 for storage failures and 500 for partial series
deletions, whose body also lists the failed occurrence ids.

When a create or rematerialize fails after the series record was stored, the
body carries {"partial": {"seriesId": ..., "written": [...]}} and a Location
header pointing at the series, so the caller can finish the batch with
POST /series/{id}/rematerialize. Occurrences deleted one by one are not
brought back by rematerialize.
*/
package server
