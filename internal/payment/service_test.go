package payment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"signalcatch/internal/models"
	"signalcatch/pkg/chainindex"
	"signalcatch/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeIndexer serves canned transfers per receiving address.
type fakeIndexer struct {
	transfers map[string][]chainindex.Transfer
	err       error
}

func (f *fakeIndexer) TransfersTo(_ context.Context, _ string, address string) ([]chainindex.Transfer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.transfers[address], nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	queues []string
	events []interface{}
}

func (f *fakePublisher) Publish(queueName string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues = append(f.queues, queueName)
	f.events = append(f.events, message)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.AutoMigrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		MinWithdrawal: decimal.NewFromInt(10),
		ReferralRate:  decimal.RequireFromString("0.1"),
		Plans: map[models.PlanType]config.PlanSpec{
			models.PlanMonthly:   {Price: decimal.RequireFromString("29.9"), Duration: 30 * 24 * time.Hour},
			models.PlanQuarterly: {Price: decimal.RequireFromString("79.9"), Duration: 90 * 24 * time.Hour},
			models.PlanYearly:    {Price: decimal.NewFromInt(299), Duration: 365 * 24 * time.Hour},
		},
	}
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	return NewService(db, testConfig(), nil, nil)
}

func createUser(t *testing.T, db *gorm.DB, referrerID *uint) *models.UserProfile {
	t.Helper()
	profile := &models.UserProfile{
		Subject:    fmt.Sprintf("sub-%d", time.Now().UnixNano()),
		ApiToken:   fmt.Sprintf("tok-%d", time.Now().UnixNano()),
		ReferrerID: referrerID,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func createAddresses(t *testing.T, db *gorm.DB, chain string, n int) []models.ReceivingAddress {
	t.Helper()
	addrs := make([]models.ReceivingAddress, 0, n)
	for i := 0; i < n; i++ {
		addr := models.ReceivingAddress{
			Chain:   chain,
			Address: fmt.Sprintf("addr-%s-%d-%d", chain, i, time.Now().UnixNano()),
			Enabled: true,
		}
		require.NoError(t, db.Create(&addr).Error)
		addrs = append(addrs, addr)
	}
	return addrs
}

func TestCheckout(t *testing.T) {
	t.Run("Invalid Plan", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestService(t, db)
		user := createUser(t, db, nil)

		_, err := svc.Checkout(user.ID, models.PlanType("lifetime"), "SOL")
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("Missing Chain", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestService(t, db)
		user := createUser(t, db, nil)

		_, err := svc.Checkout(user.ID, models.PlanMonthly, "")
		assert.ErrorIs(t, err, ErrUnsupportedChain)
	})

	t.Run("Allocates Address And Creates Order", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestService(t, db)
		user := createUser(t, db, nil)
		createAddresses(t, db, "SOL", 1)

		order, err := svc.Checkout(user.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, order.Status)
		assert.True(t, order.Amount.Equal(decimal.RequireFromString("29.9")))
		require.NotNil(t, order.AddressID)
		require.NotNil(t, order.Address)
		assert.Equal(t, "SOL", order.Address.Chain)
	})

	t.Run("Repeated Checkout Is Idempotent", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestService(t, db)
		user := createUser(t, db, nil)
		createAddresses(t, db, "SOL", 3)

		first, err := svc.Checkout(user.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)

		second, err := svc.Checkout(user.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		require.NoError(t, db.Model(&models.PaymentOrder{}).Where("user_id = ?", user.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("Plan Switch Reuses Address", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestService(t, db)
		user := createUser(t, db, nil)
		createAddresses(t, db, "SOL", 3)

		monthly, err := svc.Checkout(user.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)

		yearly, err := svc.Checkout(user.ID, models.PlanYearly, "SOL")
		require.NoError(t, err)

		assert.NotEqual(t, monthly.ID, yearly.ID)
		require.NotNil(t, yearly.AddressID)
		assert.Equal(t, *monthly.AddressID, *yearly.AddressID)
		assert.True(t, yearly.Amount.Equal(decimal.NewFromInt(299)))
	})

	t.Run("No Address Available", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestService(t, db)
		alice := createUser(t, db, nil)
		bob := createUser(t, db, nil)
		createAddresses(t, db, "SOL", 1)

		_, err := svc.Checkout(alice.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)

		_, err = svc.Checkout(bob.ID, models.PlanMonthly, "SOL")
		assert.ErrorIs(t, err, ErrNoAddressAvailable)
	})

	t.Run("Distinct Users Get Distinct Addresses", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestService(t, db)
		alice := createUser(t, db, nil)
		bob := createUser(t, db, nil)
		createAddresses(t, db, "SOL", 2)

		a, err := svc.Checkout(alice.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)
		b, err := svc.Checkout(bob.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)

		assert.NotEqual(t, *a.AddressID, *b.AddressID)
	})

	t.Run("Expired Order Releases Address", func(t *testing.T) {
		db := newTestDB(t)
		svc := newTestService(t, db)
		alice := createUser(t, db, nil)
		bob := createUser(t, db, nil)
		createAddresses(t, db, "SOL", 1)

		_, err := svc.Checkout(alice.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)

		// Jump past the reuse window so Alice's claim goes stale.
		svc.now = func() time.Time { return time.Now().Add(AddressReuseWindow + time.Hour) }
		n, err := svc.ExpireStaleOrders()
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		order, err := svc.Checkout(bob.ID, models.PlanMonthly, "SOL")
		require.NoError(t, err)
		require.NotNil(t, order.AddressID)
	})
}

func TestConcurrentCheckout(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	createAddresses(t, db, "SOL", 4)

	const users = 8
	ids := make([]uint, users)
	for i := 0; i < users; i++ {
		ids[i] = createUser(t, db, nil).ID
	}

	var wg sync.WaitGroup
	results := make([]*models.PaymentOrder, users)
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := svc.Checkout(ids[i], models.PlanMonthly, "SOL")
			if err == nil {
				results[i] = order
			}
		}(i)
	}
	wg.Wait()

	// Two different users must never hold the same pending address.
	seen := make(map[uint]uint)
	for i, order := range results {
		if order == nil || order.AddressID == nil {
			continue
		}
		if owner, ok := seen[*order.AddressID]; ok {
			t.Fatalf("address %d claimed by users %d and %d", *order.AddressID, owner, ids[i])
		}
		seen[*order.AddressID] = ids[i]
	}
	assert.LessOrEqual(t, len(seen), 4)
	assert.NotEmpty(t, seen)
}

func TestConfirmPayment(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	user := createUser(t, db, nil)
	createAddresses(t, db, "SOL", 1)

	order, err := svc.Checkout(user.ID, models.PlanMonthly, "SOL")
	require.NoError(t, err)

	t.Run("Pending To Paid", func(t *testing.T) {
		confirmed, err := svc.ConfirmPayment(user.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, confirmed.Status)
	})

	t.Run("Double Confirm Rejected", func(t *testing.T) {
		_, err := svc.ConfirmPayment(user.ID, order.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("Foreign Order Not Found", func(t *testing.T) {
		other := createUser(t, db, nil)
		_, err := svc.ConfirmPayment(other.ID, order.ID)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestCheckPayments(t *testing.T) {
	db := newTestDB(t)
	referrer := createUser(t, db, nil)
	user := createUser(t, db, &referrer.ID)
	createAddresses(t, db, "SOL", 1)

	indexer := &fakeIndexer{transfers: map[string][]chainindex.Transfer{}}
	publisher := &fakePublisher{}
	svc := NewService(db, testConfig(), indexer, publisher)

	order, err := svc.Checkout(user.ID, models.PlanMonthly, "SOL")
	require.NoError(t, err)
	_, err = svc.ConfirmPayment(user.ID, order.ID)
	require.NoError(t, err)

	addr := order.Address.Address

	t.Run("Insufficient Transfer Ignored", func(t *testing.T) {
		indexer.transfers[addr] = []chainindex.Transfer{
			{TxHash: "tx-low", Amount: decimal.NewFromInt(5), BlockTime: time.Now()},
		}
		require.NoError(t, svc.CheckPayments(context.Background()))

		got, err := svc.GetOrder(user.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, got.Status)
	})

	t.Run("Stale Transfer Ignored", func(t *testing.T) {
		indexer.transfers[addr] = []chainindex.Transfer{
			{TxHash: "tx-old", Amount: decimal.NewFromInt(100), BlockTime: order.CreatedAt.Add(-time.Hour)},
		}
		require.NoError(t, svc.CheckPayments(context.Background()))

		got, err := svc.GetOrder(user.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, got.Status)
	})

	t.Run("Matching Transfer Finalizes", func(t *testing.T) {
		indexer.transfers[addr] = []chainindex.Transfer{
			{TxHash: "tx-good", Amount: decimal.RequireFromString("29.9"), BlockTime: time.Now().Add(time.Minute)},
		}
		require.NoError(t, svc.CheckPayments(context.Background()))

		got, err := svc.GetOrder(user.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusConfirmed, got.Status)
		assert.Equal(t, "tx-good", got.TxHash)

		var profile models.UserProfile
		require.NoError(t, db.First(&profile, user.ID).Error)
		require.NotNil(t, profile.MembershipExpiresAt)
		assert.Equal(t, models.PlanMonthly, profile.MembershipPlan)
		assert.True(t, profile.MembershipExpiresAt.After(time.Now().Add(29*24*time.Hour)))

		var ref models.UserProfile
		require.NoError(t, db.First(&ref, referrer.ID).Error)
		assert.True(t, ref.RewardBalance.Equal(decimal.RequireFromString("2.99")),
			"referral reward, got %s", ref.RewardBalance)

		require.Len(t, publisher.events, 1)
		assert.Equal(t, MembershipEventQueue, publisher.queues[0])
		evt := publisher.events[0].(MembershipEvent)
		assert.Equal(t, order.ID, evt.OrderID)
		assert.Equal(t, "tx-good", evt.TxHash)
	})

	t.Run("Rerun Is Idempotent", func(t *testing.T) {
		require.NoError(t, svc.CheckPayments(context.Background()))

		var ref models.UserProfile
		require.NoError(t, db.First(&ref, referrer.ID).Error)
		assert.True(t, ref.RewardBalance.Equal(decimal.RequireFromString("2.99")))
		assert.Len(t, publisher.events, 1)
	})
}

func TestMembershipExtensionStacks(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, nil)
	createAddresses(t, db, "SOL", 1)

	indexer := &fakeIndexer{transfers: map[string][]chainindex.Transfer{}}
	svc := NewService(db, testConfig(), indexer, nil)

	existing := time.Now().Add(10 * 24 * time.Hour).UTC()
	require.NoError(t, db.Model(&models.UserProfile{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"membership_plan":       models.PlanMonthly,
			"membership_expires_at": existing,
		}).Error)

	order, err := svc.Checkout(user.ID, models.PlanMonthly, "SOL")
	require.NoError(t, err)
	_, err = svc.ConfirmPayment(user.ID, order.ID)
	require.NoError(t, err)

	indexer.transfers[order.Address.Address] = []chainindex.Transfer{
		{TxHash: "tx-stack", Amount: decimal.NewFromInt(50), BlockTime: time.Now().Add(time.Minute)},
	}
	require.NoError(t, svc.CheckPayments(context.Background()))

	var profile models.UserProfile
	require.NoError(t, db.First(&profile, user.ID).Error)
	require.NotNil(t, profile.MembershipExpiresAt)

	// 10 days remaining + 30 purchased.
	want := existing.Add(30 * 24 * time.Hour)
	assert.WithinDuration(t, want, *profile.MembershipExpiresAt, time.Minute)
}

func TestExpireStaleOrders(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	user := createUser(t, db, nil)
	createAddresses(t, db, "SOL", 1)

	order, err := svc.Checkout(user.ID, models.PlanMonthly, "SOL")
	require.NoError(t, err)

	paid := &models.PaymentOrder{
		UserID:   user.ID,
		Chain:    "SOL",
		PlanType: models.PlanMonthly,
		Amount:   decimal.NewFromInt(30),
		Status:   models.PaymentStatusPaid,
	}
	require.NoError(t, db.Create(paid).Error)

	t.Run("Fresh Orders Untouched", func(t *testing.T) {
		n, err := svc.ExpireStaleOrders()
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("Stale Pending Expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(AddressReuseWindow + time.Hour) }

		n, err := svc.ExpireStaleOrders()
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		got, err := svc.GetOrder(user.ID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusExpired, got.Status)

		var untouched models.PaymentOrder
		require.NoError(t, db.First(&untouched, paid.ID).Error)
		assert.Equal(t, models.PaymentStatusPaid, untouched.Status)
	})

	t.Run("Rerun Finds Nothing", func(t *testing.T) {
		n, err := svc.ExpireStaleOrders()
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})
}
