package handlers

import (
	"fmt"
	"os"
	"strconv"

	"signalcatch/internal/models"
	mcsolana "signalcatch/pkg/solana"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ChainSolana is the only chain we can provision keys for locally; other
// chains get their addresses registered from outside.
const ChainSolana = "SOL"

// AddressPoolHandler administers the receiving-address pool. Routes are
// gated behind the admin shared secret; addresses are provisioned or
// toggled here and only ever consumed by the allocator.
type AddressPoolHandler struct {
	db *gorm.DB
}

// NewAddressPoolHandler creates the pool admin handler.
func NewAddressPoolHandler(db *gorm.DB) *AddressPoolHandler {
	return &AddressPoolHandler{db: db}
}

// List returns the pool, optionally filtered by chain
func (h *AddressPoolHandler) List(c *gin.Context) {
	q := h.db.Model(&models.ReceivingAddress{})
	if chain := c.Query("chain"); chain != "" {
		q = q.Where("chain = ?", chain)
	}
	var addresses []models.ReceivingAddress
	if err := q.Order("id").Find(&addresses).Error; err != nil {
		fail(c, "PaymentError", err.Error())
		return
	}
	ok(c, addresses)
}

// RegisterAddressRequest is the body for registering an external address
type RegisterAddressRequest struct {
	Chain   string `json:"chain" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// Register adds an externally provisioned address to the pool
func (h *AddressPoolHandler) Register(c *gin.Context) {
	var req RegisterAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}

	if req.Chain == ChainSolana {
		if _, err := solanago.PublicKeyFromBase58(req.Address); err != nil {
			fail(c, "InvalidParams", fmt.Sprintf("invalid solana address: %v", err))
			return
		}
	}

	addr := models.ReceivingAddress{
		Chain:   req.Chain,
		Address: req.Address,
		Enabled: true,
	}
	if err := h.db.Create(&addr).Error; err != nil {
		fail(c, "PaymentError", err.Error())
		return
	}
	ok(c, addr)
}

// ToggleRequest is the body for enabling/disabling an address
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// Toggle flips an address's enabled flag. Disabled addresses drop out of
// allocation but existing orders keep pointing at them.
func (h *AddressPoolHandler) Toggle(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, "InvalidParams", "invalid address id")
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}

	res := h.db.Model(&models.ReceivingAddress{}).Where("id = ?", id).Update("enabled", req.Enabled)
	if res.Error != nil {
		fail(c, "PaymentError", res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		fail(c, "NotFound", "address not found")
		return
	}
	ok(c, gin.H{"id": id, "enabled": req.Enabled})
}

// GenerateRequest is the body for generating pool addresses
type GenerateRequest struct {
	Count int `json:"count" binding:"required,min=1,max=100"`
}

// Generate provisions new Solana receiving addresses: keypairs go to the
// encrypted keystore, public addresses into the pool.
func (h *AddressPoolHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "InvalidParams", err.Error())
		return
	}

	encryptPassword := os.Getenv("ENCRYPTPASSWORD")
	if encryptPassword == "" {
		fail(c, "PaymentError", "ENCRYPTPASSWORD not configured")
		return
	}

	km := mcsolana.NewKeyManager(os.Getenv("KEYSTORE_DIR"))
	addresses := make([]models.ReceivingAddress, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		account, err := km.GenerateKeyPair()
		if err != nil {
			fail(c, "PaymentError", fmt.Sprintf("failed to generate keypair: %v", err))
			return
		}
		if err := km.SaveKeyStoreEntry(account, encryptPassword); err != nil {
			fail(c, "PaymentError", fmt.Sprintf("failed to save keystore entry: %v", err))
			return
		}

		addr := models.ReceivingAddress{
			Chain:   ChainSolana,
			Address: account.PublicKey.ToBase58(),
			Enabled: true,
		}
		if err := h.db.Create(&addr).Error; err != nil {
			fail(c, "PaymentError", fmt.Sprintf("failed to create address record: %v", err))
			return
		}
		addresses = append(addresses, addr)
	}

	ok(c, addresses)
}
