package dali_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/rickchristie/dali"
)

func TestDescribeTable(t *testing.T) {
	t.Parallel()
	fake := newFakeSurreal(t, replyEach(`{
		"events": {"audit": "DEFINE EVENT audit ON person WHEN $event = 'DELETE' THEN (CREATE log SET at = time::now())"},
		"fields": {
			"name": "DEFINE FIELD name ON person TYPE string PERMISSIONS FULL",
			"age": "DEFINE FIELD age ON person TYPE int ASSERT $value >= 0 PERMISSIONS FULL",
			"email": "DEFINE FIELD email ON person TYPE option<string> PERMISSIONS FULL"
		},
		"indexes": {"email_idx": "DEFINE INDEX email_idx ON person FIELDS email UNIQUE"},
		"lives": {},
		"tables": {}
	}`))
	bridge := newTestBridge(t, fake, defaultConfig())

	out, err := bridge.DescribeTable(context.Background(), dali.DescribeTableInput{Table: "person"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "person" {
		t.Fatalf("expected name person, got %q", out.Name)
	}
	var names []string
	for _, f := range out.Fields {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "age,email,name" {
		t.Fatalf("expected fields sorted by name, got %v", names)
	}
	if len(out.Indexes) != 1 || !strings.Contains(out.Indexes[0].Definition, "UNIQUE") {
		t.Fatalf("unexpected indexes %+v", out.Indexes)
	}
	if len(out.Events) != 1 || out.Events[0].Name != "audit" {
		t.Fatalf("unexpected events %+v", out.Events)
	}
	if q := fake.Queries(); len(q) != 1 || q[0] != "INFO FOR TABLE person;" {
		t.Fatalf("expected INFO FOR TABLE person;, got %v", q)
	}
}

func TestDescribeTable_ShortKeys(t *testing.T) {
	t.Parallel()
	fake := newFakeSurreal(t, replyEach(`{"ev":{},"fd":{"name":"DEFINE FIELD name ON person TYPE string"},"ft":{},"ix":{}}`))
	bridge := newTestBridge(t, fake, defaultConfig())

	out, err := bridge.DescribeTable(context.Background(), dali.DescribeTableInput{Table: "person"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Fields) != 1 || out.Fields[0].Name != "name" {
		t.Fatalf("unexpected fields %+v", out.Fields)
	}
	if out.Indexes == nil || out.Events == nil {
		t.Fatal("expected empty non-nil lists")
	}
}

func TestDescribeTable_QuotesIdentifier(t *testing.T) {
	t.Parallel()
	fake := newFakeSurreal(t, replyEach(`{"fields":{},"indexes":{},"events":{}}`))
	bridge := newTestBridge(t, fake, defaultConfig())

	if _, err := bridge.DescribeTable(context.Background(), dali.DescribeTableInput{Table: "user-profile; REMOVE TABLE person"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "INFO FOR TABLE `user-profile; REMOVE TABLE person`;"
	if q := fake.Queries(); len(q) != 1 || q[0] != want {
		t.Fatalf("expected %q, got %v", want, q)
	}
}

func TestDescribeTable_EmptyName(t *testing.T) {
	t.Parallel()
	fake := newFakeSurreal(t, nil)
	bridge := newTestBridge(t, fake, defaultConfig())

	_, err := bridge.DescribeTable(context.Background(), dali.DescribeTableInput{})
	if err == nil || !strings.Contains(err.Error(), "table name must be non-empty") {
		t.Fatalf("expected empty name error, got %v", err)
	}
	if len(fake.Queries()) != 0 {
		t.Fatal("request sent for empty table name")
	}
}

func TestDescribeTable_ServerError(t *testing.T) {
	t.Parallel()
	fake := newFakeSurreal(t, func(w http.ResponseWriter, _ *http.Request, _ string) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	bridge := newTestBridge(t, fake, defaultConfig())

	_, err := bridge.DescribeTable(context.Background(), dali.DescribeTableInput{Table: "person"})
	if err == nil || !strings.HasPrefix(err.Error(), "DescribeTable query failed:") {
		t.Fatalf("expected query failure, got %v", err)
	}
}
