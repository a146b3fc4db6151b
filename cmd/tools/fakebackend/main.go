package main

import (
	"flag"
	"log"

	"github.com/david/rfp-desk/internal/backend/backendtest"
)

// fakebackend serves the sample opportunity fixture on the collaborator's
// routes so the server and rfpctl can be exercised without the real backend.
func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "Listen address")
	failPath := flag.String("fail", "", "Route to fail with -fail-status (e.g. /submitted)")
	failStatus := flag.Int("fail-status", 503, "Status returned by the failing route")
	flag.Parse()

	fake := backendtest.New(backendtest.SampleFixture())
	if *failPath != "" {
		fake.Fail(*failPath, backendtest.Failure{Status: *failStatus, Message: "injected failure"})
		log.Printf("Failing %s with status %d", *failPath, *failStatus)
	}

	e := fake.Echo()
	e.HideBanner = true
	log.Printf("Fake backend listening on %s", *addr)
	if err := e.Start(*addr); err != nil {
		log.Fatal(err)
	}
}
