// Package plex provides a client for reading watch history from a Plex Media Server.
//
// Every Plex response is nested in a MediaContainer object. DecodeEnvelope
// unwraps it generically, and all endpoints share that single decode path.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := plex.NewClient(
//		"http://192.168.1.100:32400",
//		"your-plex-token",
//		logger,
//		plex.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sectionID, err := client.ResolveSectionID(ctx, "Movies")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	history := client.WatchHistory(sectionID)
//	for record, err := range history.All(ctx) {
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(record.Title, record.ViewedAt)
//	}
//
// # Pagination
//
// /status/sessions/history/all is paged with the X-Plex-Container-Start and
// X-Plex-Container-Size headers, sorted by viewedAt descending. WatchHistory
// requests one page at a time, advances the offset by the number of entries
// actually received, and stops after a short page or an empty one.
//
// # Error Handling
//
//   - TransportError: the request failed before a response arrived
//   - APIError: non-2xx status, with IsNotFound/IsUnauthorized helpers
//   - DecodeError: malformed body, missing MediaContainer, bad viewedAt
//   - NotFoundError: a library name could not be resolved
//
// WatchHistory never retries. A failed page is reported once and ends the
// sequence.
package plex
