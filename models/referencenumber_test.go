package models

import (
	"fmt"
	"sync"

	"github.com/gobuffalo/pop/v6"
)

func (ms *ModelSuite) Test_NextReferenceNumber() {
	country := CreateCountryFixture(ms.DB)

	first, err := NextReferenceNumber(ms.DB, country, "PCA", 2026)
	ms.NoError(err)
	ms.Equal(fmt.Sprintf("%s/PCA/2026/0001", country.Code), first)

	second, err := NextReferenceNumber(ms.DB, country, "PCA", 2026)
	ms.NoError(err)
	ms.Equal(fmt.Sprintf("%s/PCA/2026/0002", country.Code), second)
}

func (ms *ModelSuite) Test_NextReferenceNumber_SeparateSequences() {
	country := CreateCountryFixture(ms.DB)

	_, err := NextReferenceNumber(ms.DB, country, "PCA", 2026)
	ms.NoError(err)

	// another document type, another year and another country each start fresh
	otherType, err := NextReferenceNumber(ms.DB, country, "PD", 2026)
	ms.NoError(err)
	ms.Equal(fmt.Sprintf("%s/PD/2026/0001", country.Code), otherType)

	otherYear, err := NextReferenceNumber(ms.DB, country, "PCA", 2027)
	ms.NoError(err)
	ms.Equal(fmt.Sprintf("%s/PCA/2027/0001", country.Code), otherYear)

	otherCountry := CreateCountryFixture(ms.DB)
	fresh, err := NextReferenceNumber(ms.DB, otherCountry, "PCA", 2026)
	ms.NoError(err)
	ms.Equal(fmt.Sprintf("%s/PCA/2026/0001", otherCountry.Code), fresh)
}

func (ms *ModelSuite) Test_NextReferenceNumber_ConcurrentFirstUse() {
	country := CreateCountryFixture(ms.DB)

	// no counter row exists yet, so every worker races the first insert
	const workers = 4
	refs := make(chan string, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := DB.Transaction(func(tx *pop.Connection) error {
				ref, err := NextReferenceNumber(tx, country, "SSFA", 2026)
				if err != nil {
					return err
				}
				refs <- ref
				return nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(refs)
	close(errs)

	for err := range errs {
		ms.NoError(err, "concurrent first use must retry, not fail")
	}

	seen := map[string]bool{}
	for ref := range refs {
		ms.False(seen[ref], "duplicate reference number issued: "+ref)
		seen[ref] = true
	}
	ms.Len(seen, workers)
}

func (ms *ModelSuite) Test_NextReferenceNumber_Padding() {
	country := CreateCountryFixture(ms.DB)

	counter := ReferenceCounter{
		CountryID:    country.ID,
		DocumentType: "PCA",
		Year:         2026,
		LastValue:    9999,
	}
	MustCreate(ms.DB, &counter)

	// the sequence keeps counting past the pad width
	got, err := NextReferenceNumber(ms.DB, country, "PCA", 2026)
	ms.NoError(err)
	ms.Equal(fmt.Sprintf("%s/PCA/2026/10000", country.Code), got)
}
