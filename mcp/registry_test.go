package mcp

import "testing"

func TestRegistryPaginationInOrder(t *testing.T) {
	r := NewRegistry()
	r.PageLimit = 2
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := r.Register(CapabilityEntry{Kind: KindTool, Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	var names []string
	cursor := ""
	for {
		page, next, err := r.List(KindTool, cursor)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range page {
			names = append(names, e.Name)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	want := []string{"alpha", "beta", "gamma"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestRegistryPageLimitOneStillCompletes(t *testing.T) {
	r := NewRegistry()
	r.PageLimit = 1
	for _, name := range []string{"a", "b", "c", "d"} {
		_ = r.Register(CapabilityEntry{Kind: KindTool, Name: name})
	}

	var seen int
	cursor := ""
	for {
		page, next, err := r.List(KindTool, cursor)
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 1 && next != "" {
			t.Fatalf("page size = %d with PageLimit=1 and more to come", len(page))
		}
		seen += len(page)
		if next == "" {
			break
		}
		cursor = next
	}
	if seen != 4 {
		t.Fatalf("saw %d entries, want 4", seen)
	}
}

func TestRegistryTombstoneNeverReappears(t *testing.T) {
	r := NewRegistry()
	r.PageLimit = 10
	for _, name := range []string{"alpha", "beta", "gamma"} {
		_ = r.Register(CapabilityEntry{Kind: KindTool, Name: name})
	}

	page, _, err := r.List(KindTool, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 3 {
		t.Fatalf("got %d entries", len(page))
	}

	if !r.Unregister(KindTool, "beta") {
		t.Fatal("expected unregister to find beta")
	}

	page, _, err = r.List(KindTool, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range page {
		if e.Name == "beta" {
			t.Fatal("tombstoned entry reappeared")
		}
	}
	if len(page) != 2 {
		t.Fatalf("got %d entries, want 2", len(page))
	}
}

func TestRegistryChangeEventFiresOnRegisterAndUnregister(t *testing.T) {
	r := NewRegistry()
	var events []ChangeEvent
	r.OnChange(func(ev ChangeEvent) { events = append(events, ev) })

	_ = r.Register(CapabilityEntry{Kind: KindTool, Name: "alpha"})
	r.Unregister(KindTool, "alpha")

	if len(events) != 2 || events[0] != ToolListChanged || events[1] != ToolListChanged {
		t.Fatalf("events = %v", events)
	}
}

func TestRegistryCursorIssuedBeforeNewRegistrationStillStable(t *testing.T) {
	r := NewRegistry()
	r.PageLimit = 1
	_ = r.Register(CapabilityEntry{Kind: KindTool, Name: "alpha"})
	_ = r.Register(CapabilityEntry{Kind: KindTool, Name: "beta"})

	page1, cursor, err := r.List(KindTool, "")
	if err != nil || len(page1) != 1 || page1[0].Name != "alpha" {
		t.Fatalf("page1 = %+v err=%v", page1, err)
	}

	// A registration after the cursor was issued must not shift it.
	_ = r.Register(CapabilityEntry{Kind: KindTool, Name: "gamma"})

	page2, _, err := r.List(KindTool, cursor)
	if err != nil || len(page2) != 1 || page2[0].Name != "beta" {
		t.Fatalf("page2 = %+v err=%v, want beta", page2, err)
	}
}
