// Package config loads engine tuning parameters and the VE/SA lookup
// tables at process start — the Go stand-in for the flash-resident
// constant tables the original firmware reads at boot. Loading follows
// the teacher's pattern (YAML file with sensible defaults, then
// environment-variable overrides, logged through slog rather than
// returned as part of the happy path) but the schema itself is entirely
// this engine's own.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kbuckham/gx35ecu/internal/sensorcal"
	"github.com/kbuckham/gx35ecu/internal/table"
)

// EngineConfig bundles every tunable the C1-C8 components need. VE and SA
// are populated from separate table files named by VETablePath/SATablePath
// (kept apart from the scalar YAML so a tuner can swap a table without
// touching the rest of the config) and are nil until Load populates them.
type EngineConfig struct {
	Displacement  float64 `yaml:"engine_displacement_m3"`
	CrankVolEff   float64 `yaml:"crank_vol_eff"`
	CrankSparkAdv float64 `yaml:"crank_spark_adv_deg"`
	CalibAngle    float64 `yaml:"calib_angle_deg"`
	FuelEndAngle  float64 `yaml:"fuel_end_angle_deg"`
	DwellTime     float64 `yaml:"dwell_time_us"`
	MinLatchTime  float64 `yaml:"min_latch_time_us"`
	EngageSpeed   float64 `yaml:"engage_speed_rpm"`
	CrankingSpeed float64 `yaml:"cranking_speed_rpm"`
	UpperRevLimit float64 `yaml:"upper_rev_limit_rpm"`
	LowerRevLimit float64 `yaml:"lower_rev_limit_rpm"`
	MassFlowRate  float64 `yaml:"mass_flow_rate_g_per_s"`
	AirFuelRatio  float64 `yaml:"air_fuel_ratio"`

	// VEUnit declares how the VE table file's cells are expressed:
	// "fraction" (0-1, used directly) or "percent" (0-100, divided by 100
	// at load time). Internally and at every call site downstream of
	// Load, VE is always a fraction — this field exists only to describe
	// the table file on disk, not to be consulted at runtime.
	VEUnit string `yaml:"ve_unit"`

	VETablePath string `yaml:"ve_table_path"`
	SATablePath string `yaml:"sa_table_path"`

	// TPSMinVolts/TPSMaxVolts and the thermistor calibration points are
	// rig-specific wiring constants, not tuning values a dyno session
	// would change — kept in the scalar YAML alongside the rest so a new
	// board revision only means editing one file.
	TPSMinVolts float64 `yaml:"tps_min_volts"`
	TPSMaxVolts float64 `yaml:"tps_max_volts"`

	IATDividerVolts float64 `yaml:"iat_divider_volts"`
	IATSeriesOhms   float64 `yaml:"iat_series_ohms"`
	IATCalR1Ohms    float64 `yaml:"iat_cal_r1_ohms"`
	IATCalT1C       float64 `yaml:"iat_cal_t1_c"`
	IATCalR2Ohms    float64 `yaml:"iat_cal_r2_ohms"`
	IATCalT2C       float64 `yaml:"iat_cal_t2_c"`

	VE *table.Table `yaml:"-"`
	SA *table.Table `yaml:"-"`
}

// TPSCal builds the throttle position calibration sensorcal needs from
// this config's wiring constants.
func (c *EngineConfig) TPSCal() sensorcal.TPSCal {
	return sensorcal.TPSCal{Min: c.TPSMinVolts, Max: c.TPSMaxVolts}
}

// IATCal builds the intake air temperature thermistor calibration
// sensorcal needs from this config's wiring constants.
func (c *EngineConfig) IATCal() sensorcal.ThermistorCal {
	return sensorcal.ThermistorCal{
		VDiv:    c.IATDividerVolts,
		RSeries: c.IATSeriesOhms,
		R1:      c.IATCalR1Ohms,
		T1C:     c.IATCalT1C,
		R2:      c.IATCalR2Ohms,
		T2C:     c.IATCalT2C,
	}
}

// Default returns an EngineConfig with the nominal GX35-class values named
// throughout the component design: 35.8cc displacement, 14.7 AFR, a 0.6g/s
// injector, 3000µs dwell, fuel completing by 120° (intake stroke), a
// 128µs minimum timer latch, and the stock 100/500/5800/6000 RPM
// engage/cranking/rev-limit thresholds. VE/SA are nil — Load populates
// them from VETablePath/SATablePath.
func Default() *EngineConfig {
	return &EngineConfig{
		Displacement:  35.8e-6,
		CrankVolEff:   0.30,
		CrankSparkAdv: 10.0,
		CalibAngle:    15.0,
		FuelEndAngle:  120.0,
		DwellTime:     3000.0,
		MinLatchTime:  128.0,
		EngageSpeed:   100.0,
		CrankingSpeed: 500.0,
		UpperRevLimit: 6000.0,
		LowerRevLimit: 5800.0,
		MassFlowRate:  0.6,
		AirFuelRatio:  14.7,
		VEUnit:        "fraction",
		VETablePath:   "tables/ve.yaml",
		SATablePath:   "tables/sa.yaml",

		TPSMinVolts: 0.5,
		TPSMaxVolts: 4.5,

		IATDividerVolts: 5.0,
		IATSeriesOhms:   2490.0,
		IATCalR1Ohms:    7500.0,
		IATCalT1C:       0.0,
		IATCalR2Ohms:    370.0,
		IATCalT2C:       80.0,
	}
}

// Load reads the scalar tuning YAML at path, falling back to Default()'s
// values for anything the file omits, applies environment overrides, and
// then loads the VE/SA table files it names. A missing scalar config file
// is not an error — the engine still boots on defaults, logged at Info —
// but a missing or malformed table file is, since the engine cannot make
// fueling or spark decisions without one.
func Load(path string) (*EngineConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Info("no engine config file found, using defaults", "path", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse engine config %s: %w", path, err)
	} else {
		slog.Info("loaded engine config", "path", path)
	}

	cfg.applyEnvOverrides()

	ve, err := loadTable(cfg.VETablePath)
	if err != nil {
		return nil, fmt.Errorf("load VE table: %w", err)
	}
	if cfg.VEUnit == "percent" {
		ve = scaleTable(ve, 0.01)
	}
	cfg.VE = ve

	sa, err := loadTable(cfg.SATablePath)
	if err != nil {
		return nil, fmt.Errorf("load SA table: %w", err)
	}
	cfg.SA = sa

	return cfg, nil
}

// applyEnvOverrides lets a bench operator override individual tunables
// without editing the YAML file, matching the teacher's env-override
// convention (ECU_*/GPS_* there, ENGINE_* here).
func (c *EngineConfig) applyEnvOverrides() {
	floatOverride := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = n
			} else {
				slog.Warn("ignoring malformed env override", "var", name, "value", v)
			}
		}
	}

	floatOverride("ENGINE_DISPLACEMENT_M3", &c.Displacement)
	floatOverride("ENGINE_CRANK_VOL_EFF", &c.CrankVolEff)
	floatOverride("ENGINE_CRANK_SPARK_ADV_DEG", &c.CrankSparkAdv)
	floatOverride("ENGINE_CALIB_ANGLE_DEG", &c.CalibAngle)
	floatOverride("ENGINE_FUEL_END_ANGLE_DEG", &c.FuelEndAngle)
	floatOverride("ENGINE_DWELL_TIME_US", &c.DwellTime)
	floatOverride("ENGINE_MIN_LATCH_TIME_US", &c.MinLatchTime)
	floatOverride("ENGINE_ENGAGE_SPEED_RPM", &c.EngageSpeed)
	floatOverride("ENGINE_CRANKING_SPEED_RPM", &c.CrankingSpeed)
	floatOverride("ENGINE_UPPER_REV_LIMIT_RPM", &c.UpperRevLimit)
	floatOverride("ENGINE_LOWER_REV_LIMIT_RPM", &c.LowerRevLimit)
	floatOverride("ENGINE_MASS_FLOW_RATE_G_PER_S", &c.MassFlowRate)
	floatOverride("ENGINE_AIR_FUEL_RATIO", &c.AirFuelRatio)

	if v := os.Getenv("ENGINE_VE_TABLE_PATH"); v != "" {
		c.VETablePath = v
	}
	if v := os.Getenv("ENGINE_SA_TABLE_PATH"); v != "" {
		c.SATablePath = v
	}
	if v := os.Getenv("ENGINE_VE_UNIT"); v != "" {
		c.VEUnit = v
	}
}

// tableFile is the on-disk schema for a VE or SA table: an RPM axis, a
// MAP axis, and a grid of cell values where row j (indexed by MAP[j])
// holds one value per RPM column — matching the lookup convention used
// everywhere else in this engine, VE(rpm, mapKPa) / SA(rpm, mapKPa), so
// every Table built here is called as t.Lookup(rpm, mapKPa).
type tableFile struct {
	RPM  []float64   `yaml:"rpm"`
	MAP  []float64   `yaml:"map"`
	Data [][]float64 `yaml:"data"`
}

func loadTable(path string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return table.New(tf.RPM, tf.MAP, tf.Data), nil
}

// scaleTable returns a new Table with every cell multiplied by factor —
// used to normalize a percent-denominated VE table into the fraction
// convention every downstream fueling computation assumes.
func scaleTable(t *table.Table, factor float64) *table.Table {
	xs := t.Xs()
	ys := t.Ys()
	data := make([][]float64, len(ys))
	for j := range ys {
		row := make([]float64, len(xs))
		for i := range xs {
			row[i] = t.Lookup(xs[i], ys[j]) * factor
		}
		data[j] = row
	}
	return table.New(xs, ys, data)
}
