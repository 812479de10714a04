package repomanager

import "github.com/dmitrijs2005/bodypace/internal/server/models"

func newDoc(name string, owner int64) *models.Document {
	return &models.Document{Name: name, Keys: "keys-" + name, OwnerID: owner}
}
