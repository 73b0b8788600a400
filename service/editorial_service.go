package service

import (
	"context"
	"fmt"
	"slices"

	"enip/geography"
	"enip/models"

	log "github.com/sirupsen/logrus"
)

// CallAdmin lets editors approve or withdraw calls
type CallAdmin struct {
	uowFactory UnitOfWorkFactory
}

func NewCallAdmin(uowFactory UnitOfWorkFactory) *CallAdmin {
	return &CallAdmin{uowFactory: uowFactory}
}

// List returns the whole register
func (a *CallAdmin) List(ctx context.Context) ([]models.Call, error) {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return uow.CallRepository().List(ctx)
}

// SetPublished flips the publish flag of one register entry
func (a *CallAdmin) SetPublished(ctx context.Context, office models.Office, geo string, published bool) error {
	if office != models.OfficePresident && office != models.OfficeSenate {
		return fmt.Errorf("office %q has no call register", office)
	}
	if !hasCallGeography(office, geo) {
		return fmt.Errorf("%q is not a %s geography", geo, office)
	}

	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	ok, err := uow.CallRepository().SetPublished(ctx, office, geo, published)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no %s call registered for %s", office, geo)
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"office":    office,
		"geography": geo,
		"published": published,
	}).Info("Call publish flag updated")
	return nil
}

func hasCallGeography(office models.Office, geo string) bool {
	if office == models.OfficeSenate {
		return geography.IsState(geo) || geography.IsSenateSpecial(geo)
	}
	return slices.Contains(geography.PresidentialGeographies(), geo)
}

// ReplaceComments swaps the whole comments table for the given set
func ReplaceComments(ctx context.Context, uowFactory UnitOfWorkFactory, comments []models.Comment) error {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.CommentRepository().ReplaceAll(ctx, comments); err != nil {
		return err
	}
	return uow.Commit()
}
