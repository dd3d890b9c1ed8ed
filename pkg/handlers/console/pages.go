package console

const pageTemplates = `
{{define "head"}}<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>Airレジ リハーサル</title>
<style>
body { font-family: sans-serif; margin: 0; }
.cmn-hdr { display: flex; justify-content: space-between; padding: 8px 16px; background: #eee; }
.cmn-hdr ul { list-style: none; margin: 0; padding: 0; }
.cmn-hdr-account { cursor: pointer; }
.cmn-hdr-logout-link { display: none; }
.calendar { display: none; border: 1px solid #999; padding: 8px; width: 280px; }
.calendar-grid td { padding: 4px; text-align: center; cursor: pointer; }
.calendar-grid td.is-other-month { color: #bbb; }
.calendar-grid td.selected { background: #9cf; }
main { padding: 16px; }
</style>
</head>
<body>{{end}}

{{define "header"}}
<header class="cmn-hdr">
  <nav><a data-sc="LinkProductSales" href="/CLP/view/salesListByMenu/">商品別売上</a></nav>
  <ul>
    <li class="cmn-hdr-account">{{.Identity}}
      <a class="cmn-hdr-logout-link" href="{{.Links.logout}}">ログアウト</a>
    </li>
  </ul>
</header>
<script>
document.querySelector('.cmn-hdr-account').addEventListener('click', function () {
  document.querySelector('.cmn-hdr-logout-link').style.display = 'inline';
});
</script>
{{end}}

{{define "picker"}}
<input id="dateRange" type="text" readonly>
<div class="calendar" id="picker">
  <button type="button" class="calendar-prev">&lt;</button>
  <span class="calendar-title"></span>
  <button type="button" class="calendar-next">&gt;</button>
  <table class="calendar-grid"><tbody></tbody></table>
  <button type="button" class="calendar-apply">適用</button>
</div>
<script>
var salesRange = { start: {{.Today}}, end: {{.Today}} };
(function () {
  var input = document.getElementById('dateRange');
  var picker = document.getElementById('picker');
  var title = picker.querySelector('.calendar-title');
  var body = picker.querySelector('.calendar-grid tbody');
  var view = new Date({{.Year}}, {{.Month}} - 1, 1);
  var picks = [];

  function pad(n) { return (n < 10 ? '0' : '') + n; }
  function iso(d) { return d.getFullYear() + '-' + pad(d.getMonth() + 1) + '-' + pad(d.getDate()); }
  function show() { input.value = salesRange.start.replace(/-/g, '/') + ' - ' + salesRange.end.replace(/-/g, '/'); }

  function render() {
    title.textContent = view.getFullYear() + '年' + (view.getMonth() + 1) + '月';
    body.innerHTML = '';
    var first = new Date(view.getFullYear(), view.getMonth(), 1 - view.getDay());
    for (var w = 0; w < 6; w++) {
      var tr = document.createElement('tr');
      for (var i = 0; i < 7; i++) {
        var d = new Date(first.getFullYear(), first.getMonth(), first.getDate() + w * 7 + i);
        var td = document.createElement('td');
        td.className = 'day' + (d.getMonth() !== view.getMonth() ? ' is-other-month' : '');
        td.textContent = d.getDate();
        td.setAttribute('data-date', iso(d));
        td.addEventListener('click', function () {
          picks.push(this.getAttribute('data-date'));
          if (picks.length > 2) { picks = picks.slice(-2); }
          this.classList.add('selected');
        });
        tr.appendChild(td);
      }
      body.appendChild(tr);
    }
  }

  // month changes re-render after a short delay like the real widget
  function step(delta) {
    setTimeout(function () {
      view = new Date(view.getFullYear(), view.getMonth() + delta, 1);
      render();
    }, 100);
  }

  input.addEventListener('click', function () { picks = []; render(); picker.style.display = 'block'; });
  picker.querySelector('.calendar-prev').addEventListener('click', function () { step(-1); });
  picker.querySelector('.calendar-next').addEventListener('click', function () { step(1); });
  picker.querySelector('.calendar-apply').addEventListener('click', function () {
    if (picks.length === 2) {
      salesRange.start = picks[0] < picks[1] ? picks[0] : picks[1];
      salesRange.end = picks[0] < picks[1] ? picks[1] : picks[0];
    }
    show();
    picker.style.display = 'none';
  });
  show();
})();
</script>
{{end}}

{{define "login"}}{{template "head" .}}
<main>
  <h1>ログイン</h1>
  {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
  <form method="post" action="/login">
    <input id="account" name="account" type="text" placeholder="Airレジ ID">
    <input id="password" name="password" type="password" placeholder="パスワード">
    <input class="primary" type="submit" value="ログイン">
  </form>
</main>
</body></html>{{end}}

{{define "top"}}{{template "head" .}}{{template "header" .}}
<main><h1>ホーム</h1></main>
</body></html>{{end}}

{{define "productSales"}}{{template "head" .}}{{template "header" .}}
<nav class="side-nav"><a data-sc="LinkSalesList" href="{{.Links.salesList}}">売上集計</a></nav>
<main>
  <h1>商品別売上</h1>
  {{template "picker" .}}
  <button id="btnSearch" type="button">検索</button>
  <a class="btn-CSV-DL" style="display:none">CSVダウンロード</a>
  <script>
  var link = document.querySelector('.btn-CSV-DL');
  document.getElementById('btnSearch').addEventListener('click', function () {
    link.removeAttribute('href');
    setTimeout(function () { link.style.display = 'inline'; }, 200);
  });
  // the first click prepares the export, the next one downloads it
  link.addEventListener('click', function (e) {
    if (!link.hasAttribute('href')) {
      e.preventDefault();
      link.href = {{.Links.productCSV}} + '?from=' + salesRange.start + '&to=' + salesRange.end;
    }
  });
  </script>
</main>
</body></html>{{end}}

{{define "salesList"}}{{template "head" .}}{{template "header" .}}
<main>
  <h1>売上集計</h1>
  {{template "picker" .}}
  <button class="pull-right csv-download-button" type="button">CSV出力</button>
  <button class="salse-csv-dl" type="button" style="display:none">日別売上CSV</button>
  <script>
  var prepared = false;
  document.querySelector('.csv-download-button').addEventListener('click', function () {
    prepared = false;
    document.querySelector('.salse-csv-dl').style.display = 'inline';
  });
  document.querySelector('.salse-csv-dl').addEventListener('click', function () {
    if (!prepared) {
      prepared = true;
      return;
    }
    window.location.href = {{.Links.dailyCSV}} + '?date=' + salesRange.end;
  });
  </script>
</main>
</body></html>{{end}}
`
