package expiremap

// node はインデックスとリストの両方から参照される侵入型の双方向リスト要素です。
// head が最も最近触れたもの、tail が最も古いものです。
type node[K comparable, V any] struct {
	key       K
	val       V
	touchedAt int64 // UnixNano

	prev *node[K, V]
	next *node[K, V]
}

func (m *Map[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = m.head
	if m.head != nil {
		m.head.prev = n
	} else {
		m.tail = n
	}
	m.head = n
}

func (m *Map[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		m.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		m.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}

func (m *Map[K, V]) moveToFront(n *node[K, V]) {
	if m.head == n {
		return
	}
	m.unlink(n)
	m.pushFront(n)
}
