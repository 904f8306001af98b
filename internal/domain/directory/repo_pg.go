package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gorm.io/datatypes"

	"github.com/carepilot/carepilot/internal/platform/db"
)

const doctorTable = "doctorInformation_table"

type doctorRepoPG struct{ pools db.PoolSource }

func NewDoctorRepoPG(pools db.PoolSource) DoctorRepository {
	return &doctorRepoPG{pools: pools}
}

const doctorCols = `id, name, specialty, address, city, state, zip_code, phone,
	rating, review_count, years_experience, bio, accepts_telehealth, in_network,
	languages, slots, reasons, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.Address, &d.City, &d.State, &d.ZipCode, &d.Phone,
		&d.Rating, &d.ReviewCount, &d.YearsExperience, &d.Bio, &d.AcceptsTelehealth, &d.InNetwork,
		&d.Languages, &d.Slots, &d.Reasons, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// normalize replaces nil JSON slices so the NOT NULL array columns get [].
func normalize(d *Doctor) {
	if d.Languages == nil {
		d.Languages = datatypes.JSONSlice[string]{}
	}
	if d.Slots == nil {
		d.Slots = datatypes.JSONSlice[Slot]{}
	}
	if d.Reasons == nil {
		d.Reasons = datatypes.JSONSlice[string]{}
	}
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return db.Wrap("create doctor", err)
	}
	normalize(d)
	err = q.QueryRow(ctx, `
		INSERT INTO `+db.Ident(doctorTable)+` (id, name, specialty, address, city, state, zip_code, phone,
			rating, review_count, years_experience, bio, accepts_telehealth, in_network,
			languages, slots, reasons)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Specialty, d.Address, d.City, d.State, d.ZipCode, d.Phone,
		d.Rating, d.ReviewCount, d.YearsExperience, d.Bio, d.AcceptsTelehealth, d.InNetwork,
		d.Languages, d.Slots, d.Reasons).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.Wrap("create doctor", err)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id string) (*Doctor, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, db.Wrap("get doctor", err)
	}
	d, err := scanDoctor(q.QueryRow(ctx, `SELECT `+doctorCols+` FROM `+db.Ident(doctorTable)+` WHERE id = $1`, id))
	if err != nil {
		return nil, db.Wrap("get doctor", err)
	}
	return d, nil
}

func (r *doctorRepoPG) List(ctx context.Context, f ListFilter) ([]*Doctor, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, db.Wrap("list doctors", err)
	}

	query := `SELECT ` + doctorCols + ` FROM ` + db.Ident(doctorTable) + ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Specialty != "" {
		query += fmt.Sprintf(` AND specialty ILIKE $%d`, idx)
		args = append(args, "%"+f.Specialty+"%")
		idx++
	}
	if f.Telehealth != nil {
		query += fmt.Sprintf(` AND accepts_telehealth = $%d`, idx)
		args = append(args, *f.Telehealth)
		idx++
	}
	if f.InNetwork != nil {
		query += fmt.Sprintf(` AND in_network = $%d`, idx)
		args = append(args, *f.InNetwork)
		idx++
	}
	if f.Search != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR specialty ILIKE $%d OR bio ILIKE $%d OR city ILIKE $%d)`, idx, idx, idx, idx)
		args = append(args, "%"+f.Search+"%")
	}
	query += ` ORDER BY rating DESC, name`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Wrap("list doctors", err)
	}
	defer rows.Close()

	items := []*Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, db.Wrap("list doctors", err)
		}
		// Languages live in a JSON array, so that filter runs here.
		if f.MatchesLanguage(d) {
			items = append(items, d)
		}
	}
	return items, db.Wrap("list doctors", rows.Err())
}

func (r *doctorRepoPG) Update(ctx context.Context, id string, patch *DoctorPatch) (*Doctor, error) {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return nil, db.Wrap("update doctor", err)
	}

	b := db.NewUpdate(doctorTable)
	if patch.Name != nil {
		b.Set("name", *patch.Name)
	}
	if patch.Specialty != nil {
		b.Set("specialty", *patch.Specialty)
	}
	if patch.Address != nil {
		b.Set("address", *patch.Address)
	}
	if patch.City != nil {
		b.Set("city", *patch.City)
	}
	if patch.State != nil {
		b.Set("state", *patch.State)
	}
	if patch.ZipCode != nil {
		b.Set("zip_code", *patch.ZipCode)
	}
	if patch.Phone != nil {
		b.Set("phone", *patch.Phone)
	}
	if patch.Rating != nil {
		b.Set("rating", *patch.Rating)
	}
	if patch.ReviewCount != nil {
		b.Set("review_count", *patch.ReviewCount)
	}
	if patch.YearsExperience != nil {
		b.Set("years_experience", *patch.YearsExperience)
	}
	if patch.Bio != nil {
		b.Set("bio", *patch.Bio)
	}
	if patch.AcceptsTelehealth != nil {
		b.Set("accepts_telehealth", *patch.AcceptsTelehealth)
	}
	if patch.InNetwork != nil {
		b.Set("in_network", *patch.InNetwork)
	}
	if patch.Languages != nil {
		b.Set("languages", datatypes.JSONSlice[string](*patch.Languages))
	}
	if patch.Reasons != nil {
		b.Set("reasons", datatypes.JSONSlice[string](*patch.Reasons))
	}

	sql, args := b.Where("id", id)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return nil, db.Wrap("update doctor", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, db.Wrap("update doctor", pgx.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

func (r *doctorRepoPG) ReplaceSlots(ctx context.Context, id string, slots []Slot) error {
	q, err := db.Conn(ctx, r.pools)
	if err != nil {
		return db.Wrap("replace slots", err)
	}
	if slots == nil {
		slots = []Slot{}
	}
	sql, args := db.NewUpdate(doctorTable).Set("slots", datatypes.JSONSlice[Slot](slots)).Where("id", id)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return db.Wrap("replace slots", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Wrap("replace slots", pgx.ErrNoRows)
	}
	return nil
}

// BulkUpsert writes every doctor in one transaction, replacing rows that
// share an id.
func (r *doctorRepoPG) BulkUpsert(ctx context.Context, doctors []*Doctor) (int, error) {
	n := 0
	err := db.WithinTx(ctx, r.pools, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, d := range doctors {
			normalize(d)
			batch.Queue(`
				INSERT INTO `+db.Ident(doctorTable)+` (id, name, specialty, address, city, state, zip_code, phone,
					rating, review_count, years_experience, bio, accepts_telehealth, in_network,
					languages, slots, reasons)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name, specialty = EXCLUDED.specialty, address = EXCLUDED.address,
					city = EXCLUDED.city, state = EXCLUDED.state, zip_code = EXCLUDED.zip_code,
					phone = EXCLUDED.phone, rating = EXCLUDED.rating, review_count = EXCLUDED.review_count,
					years_experience = EXCLUDED.years_experience, bio = EXCLUDED.bio,
					accepts_telehealth = EXCLUDED.accepts_telehealth, in_network = EXCLUDED.in_network,
					languages = EXCLUDED.languages, slots = EXCLUDED.slots, reasons = EXCLUDED.reasons,
					updated_at = NOW()`,
				d.ID, d.Name, d.Specialty, d.Address, d.City, d.State, d.ZipCode, d.Phone,
				d.Rating, d.ReviewCount, d.YearsExperience, d.Bio, d.AcceptsTelehealth, d.InNetwork,
				d.Languages, d.Slots, d.Reasons)
		}
		br := db.TxFromContext(ctx).SendBatch(ctx, batch)
		for range doctors {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
			n++
		}
		return br.Close()
	})
	if err != nil {
		return 0, db.Wrap("bulk upsert doctors", err)
	}
	return n, nil
}
