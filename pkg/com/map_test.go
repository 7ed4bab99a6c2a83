package com

import (
	"fmt"
	"sync/atomic"
	"testing"
)

type testClient struct {
	id int
	c  int32
}

func (t *testClient) Id() string   { return fmt.Sprintf("%v", t.id) }
func (t *testClient) Disconnect()  {}
func (t *testClient) change(n int) { atomic.AddInt32(&t.c, int32(n)) }

func TestPointerValue(t *testing.T) {
	m := NewNetMap[string, *testClient]()
	c := testClient{id: 1}
	m.Add(&c)
	fc, _ := m.FindBy(func(c *testClient) bool { return c.id == 1 })
	c.change(100)
	fc2, _ := m.Find(fc.Id())

	expected := c.c == fc.c && c.c == fc2.c
	if !expected {
		t.Errorf("not expected change, o: %v != %v != %v", c.c, fc.c, fc2.c)
	}
}

func TestMapOps(t *testing.T) {
	m := NewMap[string, int]()
	if !m.IsEmpty() {
		t.Errorf("the new map is not empty")
	}
	m.Put("a", 1)
	m.Put("b", 2)
	if m.Len() != 2 {
		t.Errorf("wrong length: %v", m.Len())
	}
	if v := m.Pop("a"); v != 1 {
		t.Errorf("pop returned %v", v)
	}
	if m.Has("a") {
		t.Errorf("pop didn't remove the value")
	}
	if _, err := m.Find(""); err != ErrNotFound {
		t.Errorf("empty keys should not be found")
	}
	list := m.List()
	list["c"] = 3
	if m.Has("c") {
		t.Errorf("the list is not a copy")
	}
}
