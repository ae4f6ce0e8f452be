package domain

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/loom"
	"github.com/syssam/loom/compiler/gen"
	"github.com/syssam/loom/compiler/load"
	"github.com/syssam/loom/compiler/merge"
)

// =============================================================================
// Object files
// =============================================================================

func TestObject_PlainType(t *testing.T) {
	g := newTestGraph(t)
	code := objectCode(t, g, "Customer")

	assert.Contains(t, code, "// Code generated by loom from the shop model.")
	assert.Contains(t, code, "package shop")
	assert.Contains(t, code, merge.Go.Start(merge.AllowEditing, "file"))
	assert.Contains(t, code, "// CustomerID identifies a Customer.\ntype CustomerID = uuid.UUID")
	assert.Contains(t, code, "// Customer is a person who buys things.")
	assert.Contains(t, code, merge.Go.Start(merge.IgnoreOrig, "customer-doc"))
	assert.Contains(t, code, merge.Go.Start(merge.CommentOrig, "customer-struct"))
	assert.Contains(t, code, "type Customer struct {")
	assert.Regexp(t, "ID +CustomerID +`json:\"id\"`", code)
	assert.Regexp(t, "Email +string +`json:\"email\"`", code)
	assert.Regexp(t, "ReferredByID +\\*CustomerID +`json:\"referred_by_id\"` +// R2", code)
	assert.Contains(t, code, "func NewCustomer(name string, email string, referredBy *CustomerID, store *ObjectStore) *Customer {")
	assert.Contains(t, code, `loom.HashID("Customer", name, email, referredBy)`)
	assert.Contains(t, code, "return store.InternCustomer(v)")
	assert.Contains(t, code, merge.Go.Start(merge.IgnoreOrig, "customer-implementation"))
}

func TestObject_Navigation(t *testing.T) {
	g := newTestGraph(t)

	t.Run("Lookup", func(t *testing.T) {
		code := objectCode(t, g, "Order")
		assert.Contains(t, code, "func (o *Order) R1Customer(store *ObjectStore) *Customer {")
		assert.Contains(t, code, "v, ok := store.ExhumeCustomer(o.CustomerID)")
		assert.Contains(t, code, `return loom.Must(v, ok, "Customer", o.CustomerID)`)
	})

	t.Run("Scan", func(t *testing.T) {
		code := objectCode(t, g, "Customer")
		assert.Contains(t, code, "func (c *Customer) R1Order(store *ObjectStore) []*Order {")
		assert.Contains(t, code, "for v := range store.IterOrder() {")
		assert.Contains(t, code, "if v.CustomerID == c.ID {")
		assert.Contains(t, code, "return found")
	})

	t.Run("Optional", func(t *testing.T) {
		code := objectCode(t, g, "Customer")
		assert.Contains(t, code, "func (c *Customer) R2Customer(store *ObjectStore) []*Customer {")
		assert.Contains(t, code, "if c.ReferredByID == nil {")
		assert.Contains(t, code, "store.ExhumeCustomer(*c.ReferredByID)")
	})

	t.Run("ReflexiveAtMostOne", func(t *testing.T) {
		code := objectCode(t, g, "Customer")
		assert.Contains(t, code, "func (c *Customer) R2CustomerReferrers(store *ObjectStore) []*Customer {")
		assert.Contains(t, code, "if fk := v.ReferredByID; fk != nil && *fk == c.ID {")
		assert.Contains(t, code, `return loom.AtMostOne(found, "Customer")`)
	})

	t.Run("ExactlyOne", func(t *testing.T) {
		code := objectCode(t, g, "Order")
		assert.Contains(t, code, "func (o *Order) R6Payment(store *ObjectStore) *Payment {")
		assert.Contains(t, code, `return loom.MustOne(found, "Payment")`)
	})

	t.Run("Associative", func(t *testing.T) {
		code := objectCode(t, g, "LineItem")
		assert.Regexp(t, "OrderID +OrderID +`json:\"order_id\"` +// R3", code)
		assert.Regexp(t, "ProductID +ProductID +`json:\"product_id\"` +// R3", code)
		assert.Contains(t, code, "func NewLineItem(quantity int64, order OrderID, product ProductID, store *ObjectStore) *LineItem {")
		assert.Contains(t, code, "func (li *LineItem) R3Order(store *ObjectStore) *Order {")
		assert.Contains(t, code, "func (li *LineItem) R3Product(store *ObjectStore) *Product {")

		code = objectCode(t, g, "Product")
		assert.Contains(t, code, "func (p *Product) R3LineItem(store *ObjectStore) []*LineItem {")
		assert.Contains(t, code, "if v.ProductID == p.ID {")
	})
}

func TestRecv(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"Order", "o"},
		{"LineItem", "li"},
		{"S", "s"},
		{"Value", "va"},
		{"V", "x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recv(&gen.Type{Name: tt.name}), tt.name)
	}

	t.Run("SingleLetterType", func(t *testing.T) {
		cfg, err := gen.NewConfig(gen.WithModule("example.com/app"))
		require.NoError(t, err)
		g, err := gen.NewGraph(cfg, &load.Domain{
			Name: "letters",
			Objects: []*load.Object{
				{Name: "S", Attributes: []*load.Attribute{attr("size", load.TypeInteger)}},
				{Name: "Value", Attributes: []*load.Attribute{attr("amount", load.TypeFloat)}},
			},
			Relationships: []*load.Relationship{
				{ID: 1, Binary: &load.Binary{Referrer: "Value", Referent: "S", Cardinality: load.Many}},
			},
		})
		require.NoError(t, err)
		assert.Contains(t, objectCode(t, g, "S"), "func (s *S) R1Value(store *ObjectStore) []*Value {")
		assert.Contains(t, objectCode(t, g, "Value"), "func (va *Value) R1S(store *ObjectStore) *S {")
	})
}

func TestObject_PlainSupertype(t *testing.T) {
	g := newTestGraph(t)
	code := objectCode(t, g, "Party")

	assert.Contains(t, code, "type PartyKind uint8")
	assert.Regexp(t, `PartyKindAnonymous PartyKind = iota \+ 1\s+PartyKindPerson\n`, code)
	assert.Contains(t, code, `return fmt.Sprintf("PartyKind(%d)", k)`)
	assert.Regexp(t, "Kind +PartyKind +`json:\"kind\"`", code)
	assert.NotContains(t, code, "PartySubtype")

	t.Run("PreInternedSingleton", func(t *testing.T) {
		assert.Contains(t, code, "func NewPartyAnonymous(store *ObjectStore) *Party {")
		assert.Contains(t, code, "v, ok := store.ExhumeParty(AnonymousSingleton)")
	})

	t.Run("Variant", func(t *testing.T) {
		assert.Contains(t, code, "func NewPartyPerson(name string, store *ObjectStore) *Party {")
		assert.Contains(t, code, "sub := NewPerson(name, store)")
		assert.Contains(t, code, "subID := sub.ID")
		assert.Regexp(t, `ID:\s+subID,`, code)
		assert.Regexp(t, `Kind:\s+PartyKindPerson,`, code)
	})

	t.Run("Navigation", func(t *testing.T) {
		assert.Contains(t, code, "func (p *Party) R4Anonymous() bool {\n\treturn p.Kind == PartyKindAnonymous\n}")
		assert.Contains(t, code, "func (p *Party) R4Person(store *ObjectStore) *Person {")
		assert.Contains(t, code, "case PartyKindPerson:")
		assert.Contains(t, code, "store.ExhumePerson(p.ID)")
	})

	sub := objectCode(t, g, "Person")
	assert.Contains(t, sub, "func (p *Person) R4Party(store *ObjectStore) *Party {")
	assert.Contains(t, sub, "store.ExhumeParty(p.ID)")
}

func TestObject_HybridSupertype(t *testing.T) {
	g := newTestGraph(t)
	code := objectCode(t, g, "Payment")

	assert.Contains(t, code, "type PaymentSubtype struct {")
	assert.Regexp(t, "Subtype +PaymentSubtype +`json:\"subtype\"`", code)
	assert.Regexp(t, "Amount +float64 +`json:\"amount\"`", code)
	assert.Regexp(t, "OrderID +OrderID +`json:\"order_id\"` +// R6", code)

	t.Run("Variant", func(t *testing.T) {
		assert.Contains(t, code, "func NewPaymentCard(number string, amount float64, order OrderID, store *ObjectStore) *Payment {")
		assert.Contains(t, code, "sub := NewCard(number, store)")
	})

	t.Run("SingletonVariant", func(t *testing.T) {
		assert.Contains(t, code, "func NewPaymentCash(amount float64, order OrderID, store *ObjectStore) *Payment {")
		assert.Contains(t, code, `loom.HashID("Payment", PaymentKindCash, amount, order)`)
		assert.Regexp(t, `ID:\s+CashSingleton,`, code)
	})

	t.Run("Navigation", func(t *testing.T) {
		assert.Contains(t, code, "return p.Subtype.Kind == PaymentKindCash")
		assert.Contains(t, code, "switch p.Subtype.Kind {")
		assert.Contains(t, code, "store.ExhumeCard(p.Subtype.ID)")
		assert.Contains(t, code, "func (p *Payment) R6Order(store *ObjectStore) *Order {")
	})
}

func TestObject_Singleton(t *testing.T) {
	g := newTestGraph(t)
	code := objectCode(t, g, "Anonymous")

	id := loom.SingletonID("shop", "Anonymous")
	assert.Contains(t, code, "type AnonymousID = uuid.UUID")
	assert.Contains(t, code, `var AnonymousSingleton = uuid.MustParse("`+id.String()+`")`)
	assert.NotContains(t, code, "type Anonymous struct")
	assert.NotContains(t, code, "func (")
}

func TestObject_IDStrategies(t *testing.T) {
	t.Run("Index", func(t *testing.T) {
		g := newTestGraph(t, gen.WithIDStrategy(gen.IDIndex))
		code := objectCode(t, g, "Customer")
		assert.Contains(t, code, "type CustomerID = int64")
		assert.NotContains(t, code, "loom.HashID")

		assert.Contains(t, objectCode(t, g, "Anonymous"), "const AnonymousSingleton AnonymousID = -1")
		assert.Contains(t, objectCode(t, g, "Cash"), "const CashSingleton CashID = -2")
		assert.Regexp(t, `ID\s+int64\s+`+"`json:\"id\"`", objectCode(t, g, "Payment"))
	})

	t.Run("Random", func(t *testing.T) {
		g := newTestGraph(t, gen.WithIDStrategy(gen.IDRandom))
		code := objectCode(t, g, "Customer")
		assert.Regexp(t, `ID:\s+uuid.New\(\),`, code)
	})
}

func TestObject_Ownership(t *testing.T) {
	tests := []struct {
		name      string
		ownership gen.Ownership
		wrapper   string
	}{
		{"Shared", gen.Shared, "*loom.Cell[Customer]"},
		{"Locked", gen.Locked, "*loom.Locked[Customer]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph(t, gen.WithOwnership(tt.ownership))
			code := objectCode(t, g, "Customer")
			assert.Contains(t, code, "store *ObjectStore) "+tt.wrapper+" {")
			assert.Contains(t, code, "if v.Read().CustomerID == c.ID {")
			assert.Contains(t, objectCode(t, g, "Party"), "subID := sub.Read().ID")
		})
	}
}

func TestObject_DeriveListAndUsePaths(t *testing.T) {
	g := newTestGraph(t, gen.WithDeriveList("yaml"), gen.WithUsePaths("example.com/hooks"))
	code := objectCode(t, g, "Order")
	assert.Contains(t, code, "`json:\"total\" yaml:\"total\"`")
	assert.Contains(t, code, `_ "example.com/hooks"`)
}

// =============================================================================
// Store file
// =============================================================================

func TestStore_Exclusive(t *testing.T) {
	g := newTestGraph(t)
	code := storeCode(t, g)

	assert.Contains(t, code, "type ObjectStore struct {")
	assert.Regexp(t, `customers +map\[CustomerID\]\*Customer`, code)
	assert.NotContains(t, code, "map[AnonymousID]")
	assert.NotContains(t, code, "sync.RWMutex")
	assert.Contains(t, code, "s.InternParty(&Party{")
	assert.Regexp(t, `ID:\s+AnonymousSingleton,`, code)
	assert.NotContains(t, code, "s.InternPayment(")
	assert.Contains(t, code, "func (s *ObjectStore) InternCustomer(v *Customer) *Customer {\n\ts.customers[v.ID] = v\n\treturn v\n}")
	assert.Contains(t, code, "func (s *ObjectStore) ExhumeCustomer(id CustomerID) (*Customer, bool) {")
	assert.Contains(t, code, "func (s *ObjectStore) IterCustomer() iter.Seq[*Customer] {\n\treturn maps.Values(s.customers)\n}")
	assert.Contains(t, code, "func (s *ObjectStore) CountCustomer() int {")
	assert.NotContains(t, code, "Persist")
}

func TestStore_Locked(t *testing.T) {
	g := newTestGraph(t, gen.WithOwnership(gen.Locked))
	code := storeCode(t, g)

	assert.Regexp(t, `mu +sync.RWMutex`, code)
	assert.Contains(t, code, "w := loom.NewLocked(*v)")
	assert.Contains(t, code, "vs := slices.Collect(maps.Values(s.customers))")
	assert.Contains(t, code, "defer s.mu.RUnlock()")
}

func TestStore_Index(t *testing.T) {
	g := newTestGraph(t, gen.WithIDStrategy(gen.IDIndex))
	code := storeCode(t, g)

	assert.Regexp(t, `nextID +atomic.Int64`, code)
	assert.Contains(t, code, "v.ID = s.nextID.Add(1)")
	assert.Contains(t, code, "s.observe(v.ID)")
	assert.Contains(t, code, "func (s *ObjectStore) observe(id int64) {")
}

func TestStore_Persist(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		g := newTestGraph(t, gen.WithPersist(true))
		code := storeCode(t, g)
		assert.Contains(t, code, "func (s *ObjectStore) Persist(root string) error {")
		assert.Contains(t, code, `return loom.Persist(root, "shop", loom.JSON, `)
		assert.Contains(t, code, "func LoadObjectStore(root string) (*ObjectStore, error) {")
		assert.Contains(t, code, `snap, err := loom.Load(root, "shop")`)
		assert.Contains(t, code, `snap.Decode("line_item", &lineItems)`)
		assert.Contains(t, code, "s.InternLineItem(&lineItems[i])")
	})

	t.Run("MsgpackTimestamps", func(t *testing.T) {
		g := newTestGraph(t, gen.WithPersistTimestamps(true), gen.WithPersistFormat("msgpack"))
		code := storeCode(t, g)
		assert.Contains(t, code, "loom.Msgpack")
		assert.Contains(t, code, "[]loom.Stamped[Customer]")
		assert.Contains(t, code, "s.customerStamps[v.ID] = time.Now()")
		assert.Contains(t, code, "func (s *ObjectStore) CustomerStamp(id CustomerID) (time.Time, bool) {")
		assert.Contains(t, code, "s.InternCustomer(&customers[i].Value)")
	})
}

// =============================================================================
// Backend
// =============================================================================

func TestBackend_Compile(t *testing.T) {
	dir := t.TempDir()
	g := newTestGraph(t)
	b := NewBackend(g, dir)
	assert.Equal(t, "domain", b.Name())
	assert.Equal(t, filepath.Join(dir, "shop"), b.OutDir())

	n, err := b.Compile(context.Background())
	require.NoError(t, err)
	// One file per object plus the store.
	assert.Equal(t, len(g.Nodes)+1, n)
	for _, name := range []string{"customer.go", "line_item.go", "anonymous.go", "store.go", gen.FingerprintFile} {
		assert.FileExists(t, filepath.Join(dir, "shop", name))
	}

	t.Run("UpToDate", func(t *testing.T) {
		n, err := NewBackend(newTestGraph(t), dir).Compile(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("KeepsUserCode", func(t *testing.T) {
		path := filepath.Join(dir, "shop", "customer.go")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		end := merge.Go.End(merge.IgnoreOrig, "customer-implementation")
		user := "func (c *Customer) Greeting() string { return \"hi \" + c.Name }\n"
		data = []byte(strings.Replace(string(data), end, user+end, 1))
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = NewBackend(newTestGraph(t, gen.WithAlwaysProcess(true)), dir).Compile(context.Background())
		require.NoError(t, err)
		out, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(out), "Greeting() string")
	})
}
