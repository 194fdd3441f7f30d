package daemon

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/inkypi/battmon/pkg/config"
	"github.com/inkypi/battmon/pkg/uptime"
	"github.com/inkypi/battmon/pkg/version"
)

// getBattery returns the current metrics reading. Optional fields are
// omitted entirely when the active backend cannot supply them; with no
// backend the body is exactly {"available": false, "backend": "none"}.
func getBattery(c *gin.Context) {
	c.JSON(http.StatusOK, monitor.GetStatus())
}

// reprobe discards the cached detection outcome and runs the chain
// again. This is the only way to re-detect hardware short of a
// restart.
func reprobe(c *gin.Context) {
	monitor.Reset()
	r := monitor.GetStatus()
	logrus.WithFields(r.LogrusFields()).Info("re-probed battery hardware")
	c.JSON(http.StatusOK, r)
}

type uptimeResponse struct {
	TotalRuntime    string `json:"totalRuntime"`
	SinceFullCharge string `json:"sinceFullCharge,omitempty"`
}

func getUptime(c *gin.Context) {
	snap := tracker.Snapshot()
	resp := uptimeResponse{
		TotalRuntime: uptime.FormatHMS(snap.TotalRuntime),
	}
	if snap.SinceFullCharge != nil {
		resp.SinceFullCharge = uptime.FormatHMS(*snap.SinceFullCharge)
	}
	c.IndentedJSON(http.StatusOK, resp)
}

func setFullCharge(c *gin.Context) {
	at, err := tracker.SetFullChargeNow()
	if err != nil {
		logrus.Errorf("failed to set full charge time: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("full charge time set to %s", at.Format("2006-01-02 15:04:05 MST")))
}

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func setLogSystemStats(c *gin.Context) {
	var enabled bool
	if err := c.BindJSON(&enabled); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetLogSystemStats(enabled)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set log system stats to %t", enabled)
	restartStatsLogger()

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set log system stats to %t", enabled))
}

func setStatsSchedule(c *gin.Context) {
	var schedule string
	if err := c.BindJSON(&schedule); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := config.ValidateStatsSchedule(schedule); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetStatsSchedule(schedule)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set stats schedule to %q", schedule)
	restartStatsLogger()

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set stats schedule to %q", schedule))
}

func setSensorAddress(c *gin.Context) {
	var addr int
	if err := c.BindJSON(&addr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := config.ValidateSensorAddress(addr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetSensorAddress(addr)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set sensor address to 0x%02x", addr)

	// The bound backend is never swapped in place; a new address only
	// matters on the next probe.
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set sensor address to 0x%02x. Run a re-probe (or restart the daemon) for it to take effect.", addr))
}

func setShuntOhms(c *gin.Context) {
	var ohms float64
	if err := c.BindJSON(&ohms); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := config.ValidateShuntOhms(ohms); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	conf.SetShuntOhms(ohms)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set shunt resistance to %g ohms", ohms)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set shunt resistance to %g ohms. Run a re-probe (or restart the daemon) for it to take effect.", ohms))
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
